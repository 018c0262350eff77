package contract

import "errors"

// 最小错误分类（用于上层策略判定与退出码）。
var (
	// ErrInvalidInput: 组件入参不合法（例如选项取值越界）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 阶段输出违反数据模型不变量。
	ErrInvariantViolation = errors.New("invariant violation")
)

// 源头数据错误：一律致命，在任何变换开始前中止整批。
var (
	// ErrSchema: 表头缺列、行缺标签列等结构问题。
	ErrSchema = errors.New("schema invalid")
	// ErrEncoding: 文本编码非法（例如声明 utf-8 却含非法字节）。
	ErrEncoding = errors.New("encoding invalid")
	// ErrUnknownLabel: 标签不在配置的闭集合内（label_policy=reject）。
	ErrUnknownLabel = errors.New("unknown label")
)

// ErrNoData: 类别无数据，平均值无定义。非致命，由报告呈现为 NoDataNote。
var ErrNoData = errors.New(NoDataNote)
