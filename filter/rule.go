package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/pythonvista/intelligent-libary/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("book", cel.DynType),
		)
	})
	return celEnv, err
}

// Rule 是基于 CEL (Common Expression Language) 表达式的过滤规则。
// 表达式在构造期编译一次，之后线程安全地复用；命中（求值为 true）的物品被过滤。
//
// 可用变量：
//   - item.id / item.score / item.algorithm
//   - label.<key> → 标签值（不存在为 null）
//   - book.title / book.author / book.subject / book.tags（需要提供 Books 查询）
//
// 示例：
//   - `item.score < 0.05` → 过滤低分结果
//   - `book.subject == "Reference"` → 过滤工具书
//   - `label.recall_source == "temporal" && item.score < 0.2`
type Rule struct {
	expr string
	prg  cel.Program

	// books 可选的物品元数据查询；nil 时 book 变量为空 map
	books func(itemID string) (core.Book, bool)
}

// NewRule 编译一条过滤规则。表达式非法时构造失败（INVALID_CONFIG）。
func NewRule(expr string, books func(itemID string) (core.Book, bool)) (*Rule, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidConfig,
			"filter: cel environment: "+err.Error())
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("filter: compile rule %q: %v", expr, issues.Err()))
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("filter: program rule %q: %v", expr, err))
	}

	return &Rule{expr: expr, prg: prg, books: books}, nil
}

func (r *Rule) Name() string {
	return "filter.rule"
}

// Expr 返回规则的原始表达式。
func (r *Rule) Expr() string {
	return r.expr
}

func (r *Rule) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.ScoredItem,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	labels := make(map[string]any, len(item.Labels))
	for k, lbl := range item.Labels {
		labels[k] = lbl.Value
	}

	book := map[string]any{}
	if r.books != nil {
		if b, ok := r.books(item.ID); ok {
			book = map[string]any{
				"title":   b.Title,
				"author":  b.Author,
				"subject": b.Subject,
				"tags":    b.Tags,
			}
		}
	}

	out, _, err := r.prg.Eval(map[string]any{
		"item": map[string]any{
			"id":        item.ID,
			"score":     item.Score,
			"algorithm": item.Algorithm,
		},
		"label": labels,
		"book":  book,
	})
	if err != nil {
		return false, fmt.Errorf("filter: eval rule %q: %w", r.expr, err)
	}

	hit, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter: rule %q must return boolean, got %T", r.expr, out.Value())
	}
	return hit, nil
}
