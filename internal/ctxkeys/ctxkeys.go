package ctxkeys

// RunIDKey context 中保存当前运行 ID 的键
type RunIDKey struct{}
