package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"testing"
)

// BenchmarkWrite: 不同工件尺寸下的写入开销（原子/非原子）。
func BenchmarkWrite(b *testing.B) {
	for _, atomic := range []bool{true, false} {
		for _, sz := range []int{4 * 1024, 1024 * 1024} {
			b.Run(fmt.Sprintf("atomic=%v/size=%d", atomic, sz), func(b *testing.B) {
				data := bytes.Repeat([]byte("stem,1\n"), sz/7)
				w, err := New(&Options{OutputDir: b.TempDir(), Atomic: &atomic})
				if err != nil {
					b.Fatalf("创建 Writer 失败: %v", err)
				}
				ctx := context.Background()
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := w.Write(ctx, "freq_spam.csv", bytes.NewReader(data)); err != nil {
						b.Fatalf("写入失败: %v", err)
					}
				}
			})
		}
	}
}
