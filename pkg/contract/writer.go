package contract

import (
	"context"
	"io"
)

// Writer: 将渲染工件以流式方式持久化到目标介质。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 流式写入，按字节透传，不读取/修改内容；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}

// Store: 结构化持久化（可选）。与 Writer 不同，直接消费 Report。
// 约束：一次 Save 对应一次运行；失败不得留下半条运行记录。
type Store interface {
	Save(ctx context.Context, rep Report) error
	Close() error
}
