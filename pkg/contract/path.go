package contract

import (
	"path"
	"strings"
)

// NormalizeFileID 规范化路径，统一为跨平台稳定的 FileID。
// 规则：
// - 反斜杠统一为正斜杠；
// - 清理多余分隔符与 .、.. 片段；
// - 保留相对/绝对语义，不做隐式绝对化。
func NormalizeFileID(p string) FileID {
	return FileID(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}

// ArtifactName 将标签映射为工件文件名片段：仅保留 [a-z0-9_-]，其余替换为 '_'。
// 例如 ("freq_", "ham", ".csv") → "freq_ham.csv"。
func ArtifactName(prefix string, l Label, ext string) ArtifactID {
	var b strings.Builder
	b.WriteString(prefix)
	for _, r := range strings.ToLower(string(l)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if l == "" {
		b.WriteString("_")
	}
	b.WriteString(ext)
	return ArtifactID(b.String())
}
