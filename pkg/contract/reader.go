package contract

import (
	"context"
	"io"
)

// Reader: 语料来源抽象（文件/目录/STDIN）。
// 约束：
// 1) 按文件维度回调，回调方负责 Close；
// 2) FileID 稳定且去平台差异化；
// 3) 不做解码/表格解析，仅提供字节流；
// 4) 不在内部起并发。
type Reader interface {
	Iterate(ctx context.Context, roots []string, yield func(fileID FileID, r io.ReadCloser) error) error
}

// Parser: 将单文件字节流解析为有序 Record 序列，并分配 Index（0..n-1）。
// 约束：
// 1) 不跨文件合并；
// 2) 编码错误、表头缺列、行缺标签等源头问题立即失败（整批中止）；
// 3) 文本缺失按空串处理；
// 4) 无内部并发。
type Parser interface {
	Parse(ctx context.Context, fileID FileID, r io.Reader) ([]Record, error)
}
