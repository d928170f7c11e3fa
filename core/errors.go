package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 错误分级：
//   - UNKNOWN_ID / NOT_TRAINED：冷启动类，可恢复，预测路径吸收为空结果
//   - INSUFFICIENT_DATA / TRAINING_FAILED：训练失败，旧模型状态保持不变
//   - INVALID_CONFIG：构造期拒绝，致命
type DomainError struct {
	Code    string // 错误代码（如 "UNKNOWN_ID", "TRAINING_FAILED"）
	Message string // 错误消息
	Module  string // 模块名称（如 "matrix", "factor", "content"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// 错误代码常量
const (
	ErrorCodeUnknownID        = "UNKNOWN_ID"        // 标识符不在训练期索引中（冷启动）
	ErrorCodeNotTrained       = "NOT_TRAINED"       // 模型尚未训练
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA" // 训练数据不足以分解
	ErrorCodeInvalidConfig    = "INVALID_CONFIG"    // 配置无效，构造期拒绝
	ErrorCodeTrainingFailed   = "TRAINING_FAILED"   // 不可恢复的数值失败
	ErrorCodeNotFound         = "NOT_FOUND"         // 资源不存在
	ErrorCodeNotSupported     = "NOT_SUPPORTED"     // 操作不支持
)

// 模块名称常量
const (
	ModuleMatrix  = "matrix"  // 交互矩阵/索引模块
	ModuleFactor  = "factor"  // 隐因子模型模块
	ModuleContent = "content" // 内容相似模块
	ModuleHybrid  = "hybrid"  // 混合推荐模块
	ModuleABTest  = "abtest"  // A/B 实验模块
	ModuleStore   = "store"   // 存储模块
	ModuleConfig  = "config"  // 配置模块
	ModuleEngine  = "engine"  // 引擎编排模块
)

// IsColdStart 检查错误是否为冷启动（标识符未知）。
// 冷启动永远是可恢复的：调用方应返回空结果，而不是向上传播失败。
func IsColdStart(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnknownID
	}
	return false
}

// IsNotTrained 检查错误是否为模型未训练。与冷启动一样在预测路径被吸收。
func IsNotTrained(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotTrained
	}
	return false
}

// IsRecoverable 检查错误是否可以在预测路径安全吸收为空结果。
func IsRecoverable(err error) bool {
	return IsColdStart(err) || IsNotTrained(err)
}

// IsInsufficientData 检查错误是否为训练数据不足
func IsInsufficientData(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInsufficientData
	}
	return false
}

// IsInvalidConfig 检查错误是否为无效配置
func IsInvalidConfig(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidConfig
	}
	return false
}

// IsTrainingFailed 检查错误是否为不可恢复的训练失败
func IsTrainingFailed(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeTrainingFailed
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}
