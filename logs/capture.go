package logs

import "sync"

// Entry 捕获的单条日志。
type Entry struct {
	Level string
	Msg   string
	Args  []any
}

// Capture 测试用 Logger，记录全部日志到内存。
type Capture struct {
	mu      sync.Mutex
	entries []Entry
}

func (c *Capture) Warn(msg string, args ...any)  { c.append("warn", msg, args) }
func (c *Capture) Info(msg string, args ...any)  { c.append("info", msg, args) }
func (c *Capture) Error(msg string, args ...any) { c.append("error", msg, args) }

func (c *Capture) append(level, msg string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Entry{Level: level, Msg: msg, Args: args})
}

// Entries 返回已捕获日志的副本。
func (c *Capture) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
