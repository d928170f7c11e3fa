package content

import (
	"bytes"
	"encoding/gob"
	"math"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pythonvista/intelligent-libary/core"
	"github.com/pythonvista/intelligent-libary/matrix"
	"github.com/pythonvista/intelligent-libary/pkg/text"
	"github.com/pythonvista/intelligent-libary/pkg/utils"
)

// 字段重复次数：结构化元数据展开为伪文档时的字段权重。
// 标题与主题最重要，作者次之，描述与标签原样拼入。
const (
	titleRepeat   = 3
	subjectRepeat = 3
	authorRepeat  = 2
)

// TFIDFRecommender 是基于物品元数据的内容相似模型。
//
// 核心思想：
//   - 把每本书的结构化元数据按字段权重展开为一个伪文档
//   - 训练期构建词表与 L2 归一化的 TF-IDF 文档向量
//   - 预测期用历史文档向量的均值作为用户画像，按余弦相似度打分
//
// 训练态（词表 + 文档向量）是不可变快照，通过 atomic.Pointer 整体发布；
// 预测只读快照，可与下一轮训练并发。
type TFIDFRecommender struct {
	// MaxFeatures 词表上限；0 表示默认 500。
	MaxFeatures int

	// MinDocCount 词的最小文档频次（绝对计数）；0 表示默认 2。
	MinDocCount int

	// MaxDocFraction 词的最大文档频率（占比）；0 表示默认 0.8。
	MaxDocFraction float64

	// Tokenizer 文本预处理器；nil 表示默认英文配置。
	Tokenizer *text.Tokenizer

	Logger zerolog.Logger

	state atomic.Pointer[tfidfState]
}

// tfidfState 是一次训练产出的不可变快照。
type tfidfState struct {
	items     *matrix.Index
	vocab     *matrix.Index
	vectors   []map[int]float64 // 按物品下标，L2 归一化
	trainedAt time.Time
}

func (r *TFIDFRecommender) maxFeatures() int {
	if r.MaxFeatures <= 0 {
		return 500
	}
	return r.MaxFeatures
}

func (r *TFIDFRecommender) minDocCount() int {
	if r.MinDocCount <= 0 {
		return 2
	}
	return r.MinDocCount
}

func (r *TFIDFRecommender) maxDocFraction() float64 {
	if r.MaxDocFraction <= 0 || r.MaxDocFraction > 1 {
		return 0.8
	}
	return r.MaxDocFraction
}

func (r *TFIDFRecommender) tokenizer() *text.Tokenizer {
	if r.Tokenizer != nil {
		return r.Tokenizer
	}
	return text.NewTokenizer()
}

// Name 返回算法名。
func (r *TFIDFRecommender) Name() string { return "tfidf" }

// Trained 返回是否已有可服务的训练态。
func (r *TFIDFRecommender) Trained() bool { return r.state.Load() != nil }

// TrainedAt 返回当前训练态的产出时间。
func (r *TFIDFRecommender) TrainedAt() time.Time {
	if st := r.state.Load(); st != nil {
		return st.trainedAt
	}
	return time.Time{}
}

// document 把一本书的元数据展开为 token 伪文档。
func (r *TFIDFRecommender) document(b core.Book) []string {
	tok := r.tokenizer()

	var doc []string
	appendN := func(s string, n int) {
		if s == "" {
			return
		}
		ts := tok.Tokenize(s)
		for i := 0; i < n; i++ {
			doc = append(doc, ts...)
		}
	}

	appendN(b.Title, titleRepeat)
	appendN(b.Subject, subjectRepeat)
	appendN(b.Author, authorRepeat)
	appendN(b.Description, 1)
	for _, tag := range b.Tags {
		appendN(tag, 1)
	}
	return doc
}

// Fit 用物品元数据全量重建词表与文档向量，完成后原子发布。
// 失败时旧训练态保持不变。
func (r *TFIDFRecommender) Fit(books []core.Book) error {
	if len(books) == 0 {
		return core.NewDomainError(core.ModuleContent, core.ErrorCodeInsufficientData,
			"content: no books to fit")
	}

	start := time.Now()

	// 去重：同一 id 后到者覆盖先到者。
	byID := make(map[string]core.Book, len(books))
	ids := make([]string, 0, len(books))
	for _, b := range books {
		if _, ok := byID[b.ID]; !ok {
			ids = append(ids, b.ID)
		}
		byID[b.ID] = b
	}
	items := matrix.BuildIndex(ids)
	nDocs := items.Len()

	// 第一遍：分词并统计文档频次与语料词频。
	docs := make([][]string, nDocs)
	df := make(map[string]int)
	tfCorpus := make(map[string]int)
	for i := 0; i < nDocs; i++ {
		id, _ := items.FromIndex(i)
		doc := r.document(byID[id])
		docs[i] = doc

		seen := make(map[string]struct{}, len(doc))
		for _, w := range doc {
			tfCorpus[w]++
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			df[w]++
		}
	}

	// 文档频次筛选带：太稀的词是噪声，太普遍的词无区分度。
	maxDF := int(r.maxDocFraction() * float64(nDocs))
	if maxDF < 1 {
		maxDF = 1
	}
	kept := make([]string, 0, len(df))
	for w, n := range df {
		if n >= r.minDocCount() && n <= maxDF {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return core.NewDomainError(core.ModuleContent, core.ErrorCodeInsufficientData,
			"content: empty vocabulary after document-frequency pruning")
	}

	// 词表截断：按语料词频降序保留，同频按字典序，保证可复现。
	if len(kept) > r.maxFeatures() {
		sort.Slice(kept, func(i, j int) bool {
			if tfCorpus[kept[i]] != tfCorpus[kept[j]] {
				return tfCorpus[kept[i]] > tfCorpus[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:r.maxFeatures()]
	}
	vocab := matrix.BuildIndex(kept)

	// 第二遍：sublinear TF × smooth IDF，L2 归一化。
	idf := make([]float64, vocab.Len())
	for j := 0; j < vocab.Len(); j++ {
		w, _ := vocab.FromIndex(j)
		idf[j] = math.Log(float64(1+nDocs)/float64(1+df[w])) + 1
	}

	vectors := make([]map[int]float64, nDocs)
	for i, doc := range docs {
		tf := make(map[int]int)
		for _, w := range doc {
			if j, err := vocab.ToIndex(w); err == nil {
				tf[j]++
			}
		}

		vec := make(map[int]float64, len(tf))
		var norm float64
		for j, n := range tf {
			v := (1 + math.Log(float64(n))) * idf[j]
			vec[j] = v
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec {
				vec[j] /= norm
			}
		}
		vectors[i] = vec
	}

	r.state.Store(&tfidfState{
		items:     items,
		vocab:     vocab,
		vectors:   vectors,
		trainedAt: time.Now(),
	})

	r.Logger.Info().
		Int("books", nDocs).
		Int("vocabulary", vocab.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("tfidf model fitted")
	return nil
}

func (r *TFIDFRecommender) trained() (*tfidfState, error) {
	st := r.state.Load()
	if st == nil {
		return nil, core.NewDomainError(core.ModuleContent, core.ErrorCodeNotTrained,
			"content: tfidf model not trained")
	}
	return st, nil
}

// PredictByHistory 用历史文档向量的均值作为用户画像，按余弦相似度
// 对全部物品打分并返回 TopN。历史中的物品与 exclude 一并去除。
// 历史为空或全部未命中索引是冷启动（UNKNOWN_ID）。
func (r *TFIDFRecommender) PredictByHistory(history []string, n int, exclude []string) ([]*core.ScoredItem, error) {
	st, err := r.trained()
	if err != nil {
		return nil, err
	}

	profile := make(map[int]float64)
	hits := 0
	for _, id := range history {
		i, err := st.items.ToIndex(id)
		if err != nil {
			continue
		}
		hits++
		for j, v := range st.vectors[i] {
			profile[j] += v
		}
	}
	if hits == 0 {
		return nil, core.NewDomainError(core.ModuleContent, core.ErrorCodeUnknownID,
			"content: no known items in user history")
	}
	for j := range profile {
		profile[j] /= float64(hits)
	}

	skip := make(map[string]struct{}, len(history)+len(exclude))
	for _, id := range history {
		skip[id] = struct{}{}
	}
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	return st.rank(profile, n, skip), nil
}

// SimilarItems 返回与指定物品最相似的 n 个物品，永不包含其自身。
func (r *TFIDFRecommender) SimilarItems(itemID string, n int) ([]*core.ScoredItem, error) {
	st, err := r.trained()
	if err != nil {
		return nil, err
	}
	i, err := st.items.ToIndex(itemID)
	if err != nil {
		return nil, err
	}
	skip := map[string]struct{}{itemID: {}}
	return st.rank(st.vectors[i], n, skip), nil
}

// TopTerms 返回该物品文档向量中权重最高的 n 个词。
// 零权重的词永不返回；同分按词表序。
func (r *TFIDFRecommender) TopTerms(itemID string, n int) ([]core.Term, error) {
	st, err := r.trained()
	if err != nil {
		return nil, err
	}
	i, err := st.items.ToIndex(itemID)
	if err != nil {
		return nil, err
	}

	cols := make([]int, 0, len(st.vectors[i]))
	for j, v := range st.vectors[i] {
		if v > 0 {
			cols = append(cols, j)
		}
	}
	vec := st.vectors[i]
	sort.Slice(cols, func(a, b int) bool {
		if vec[cols[a]] != vec[cols[b]] {
			return vec[cols[a]] > vec[cols[b]]
		}
		return cols[a] < cols[b]
	})
	if n > 0 && len(cols) > n {
		cols = cols[:n]
	}

	out := make([]core.Term, 0, len(cols))
	for _, j := range cols {
		w, _ := st.vocab.FromIndex(j)
		out = append(out, core.Term{Text: w, Weight: vec[j]})
	}
	return out, nil
}

// rank 按余弦相似度对全部物品打分，跳过 skip，分数降序
// （同分按物品下标序），截断到 n。零分物品不进入结果。
func (st *tfidfState) rank(query map[int]float64, n int, skip map[string]struct{}) []*core.ScoredItem {
	var qNorm float64
	for _, v := range query {
		qNorm += v * v
	}
	qNorm = math.Sqrt(qNorm)
	if qNorm == 0 {
		return nil
	}

	type cand struct {
		idx   int
		score float64
	}
	cands := make([]cand, 0, st.items.Len())
	for i := 0; i < st.items.Len(); i++ {
		id, _ := st.items.FromIndex(i)
		if _, ok := skip[id]; ok {
			continue
		}
		// 文档向量已 L2 归一化，余弦 = 点积 / |query|。
		var dot float64
		for j, v := range query {
			dot += v * st.vectors[i][j]
		}
		if s := dot / qNorm; s > 0 {
			cands = append(cands, cand{idx: i, score: s})
		}
	}

	sort.Slice(cands, func(a, b int) bool {
		if cands[a].score != cands[b].score {
			return cands[a].score > cands[b].score
		}
		return cands[a].idx < cands[b].idx
	})
	if n > 0 && len(cands) > n {
		cands = cands[:n]
	}

	out := make([]*core.ScoredItem, 0, len(cands))
	for _, c := range cands {
		id, _ := st.items.FromIndex(c.idx)
		it := core.NewScoredItem(id)
		it.Score = c.score
		it.Algorithm = "tfidf"
		it.PutLabel("recall_source", utils.Label{Value: "tfidf", Source: "content"})
		it.PutLabel("similarity", utils.Label{
			Value:  strconv.FormatFloat(c.score, 'f', 4, 64),
			Source: "content",
		})
		out = append(out, it)
	}
	return out
}

// tfidfSnapshot 是训练态的持久化编码。物品与词表按下标序存储，
// 它们在构建时已按字典序排列，恢复时重建出同一映射。
type tfidfSnapshot struct {
	ItemIDs   []string
	Vocab     []string
	Vectors   []map[int]float64
	TrainedAt time.Time
}

// Snapshot 导出当前训练态为 gob blob。
func (r *TFIDFRecommender) Snapshot() ([]byte, error) {
	st, err := r.trained()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	snap := tfidfSnapshot{
		ItemIDs:   st.items.IDs(),
		Vocab:     st.vocab.IDs(),
		Vectors:   st.vectors,
		TrainedAt: st.trainedAt,
	}
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, core.NewDomainError(core.ModuleContent, core.ErrorCodeTrainingFailed,
			"content: encode snapshot: "+err.Error())
	}
	return buf.Bytes(), nil
}

// Restore 从 blob 恢复训练态并原子发布。
func (r *TFIDFRecommender) Restore(blob []byte) error {
	var snap tfidfSnapshot
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&snap); err != nil {
		return core.NewDomainError(core.ModuleContent, core.ErrorCodeTrainingFailed,
			"content: decode snapshot: "+err.Error())
	}
	if len(snap.Vectors) != len(snap.ItemIDs) {
		return core.NewDomainError(core.ModuleContent, core.ErrorCodeTrainingFailed,
			"content: snapshot vector count does not match item count")
	}

	r.state.Store(&tfidfState{
		items:     matrix.BuildIndex(snap.ItemIDs),
		vocab:     matrix.BuildIndex(snap.Vocab),
		vectors:   snap.Vectors,
		trainedAt: snap.TrainedAt,
	})
	return nil
}
