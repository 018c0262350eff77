package pipeline

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"spamstat/internal/diag"
	"spamstat/pkg/contract"
)

// forEach 对 [0,n) 逐项执行 fn。
// workers<=1 时顺序执行；否则切为连续分片，由 errgroup 限流并发，首错取消其余分片。
// fn 只允许写入自己下标对应的输出槽位。
func forEach(ctx context.Context, n, workers int, fn func(i int) error) error {
	term := diag.GetTerminal()
	var done atomic.Int64
	tick := func() {
		if d := done.Add(1); d%256 == 0 {
			term.StageProgress(int(d), n)
		}
	}
	if workers <= 1 || n < 2 {
		for i := 0; i < n; i++ {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := fn(i); err != nil {
				return err
			}
			tick()
		}
		return ctx.Err()
	}
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(i); err != nil {
					return err
				}
				tick()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// NormalizeAll: Record → NormalizedRecord（新切片，输入不变）。
func NormalizeAll(ctx context.Context, n contract.Normalizer, recs []contract.Record, workers int, verify bool) ([]contract.NormalizedRecord, error) {
	out := make([]contract.NormalizedRecord, len(recs))
	err := forEach(ctx, len(recs), workers, func(i int) error {
		s := n.Normalize(recs[i].Text)
		out[i] = contract.NormalizedRecord{Record: recs[i], Normalized: s, Empty: s == ""}
		if verify {
			return contract.ValidateNormalized(out[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FilterAll: NormalizedRecord → FilteredRecord。
func FilterAll(ctx context.Context, f contract.Filter, recs []contract.NormalizedRecord, workers int, verify bool) ([]contract.FilteredRecord, error) {
	out := make([]contract.FilteredRecord, len(recs))
	err := forEach(ctx, len(recs), workers, func(i int) error {
		out[i] = contract.FilteredRecord{NormalizedRecord: recs[i], Filtered: f.Filter(recs[i].Normalized)}
		if verify {
			return contract.ValidateFiltered(out[i], f.IsStopword)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StemAll: FilteredRecord → StemmedRecord。
func StemAll(ctx context.Context, st contract.Stemmer, recs []contract.FilteredRecord, workers int, verify bool) ([]contract.StemmedRecord, error) {
	out := make([]contract.StemmedRecord, len(recs))
	err := forEach(ctx, len(recs), workers, func(i int) error {
		out[i] = contract.StemmedRecord{FilteredRecord: recs[i], Stemmed: StemText(st, recs[i].Filtered)}
		if verify {
			return contract.ValidateStemmed(out[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StemText 按空白切分、逐 token 词干化并以单空格重组；空 token 直接丢弃。
func StemText(st contract.Stemmer, s string) string {
	toks := strings.Fields(s)
	if len(toks) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for i, tok := range toks {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(st.Stem(tok))
	}
	return b.String()
}
