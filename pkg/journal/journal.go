// Package journal 把会话、计数和事件持久化到本地 SQLite
//
// 写入通过有界队列交给单个写协程，调用方不会被磁盘 I/O 阻塞；
// 队列满时丢弃并计数。读取（启动时恢复计数、查询历史）直接同步执行。
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/zoeyai/reelworker/internal/logger"
)

// Counters 累计计数
type Counters struct {
	Catches   int `json:"catches"`
	Fruits    int `json:"fruits"`
	Purchases int `json:"purchases"`
	Spawns    int `json:"spawns"`
}

// Entry 一条事件记录
type Entry struct {
	Session string
	At      time.Time
	Kind    string
	Entry   string
	Score   float64
}

// Stats 写队列状态
type Stats struct {
	QueueDepth    int
	QueueCapacity int
	Dropped       uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqCounters
	reqSessionStart
	reqSessionEnd
)

type req struct {
	kind     reqKind
	session  string
	at       time.Time
	entry    Entry
	counters Counters
}

// Journal SQLite 日志
type Journal struct {
	db  *sql.DB
	log *logger.Logger

	// mu 保证 enqueue 的发送与 Close 的 close(ch) 互斥
	mu     sync.RWMutex
	closed bool
	ch     chan req
	wg     sync.WaitGroup
	once   sync.Once

	dropped atomic.Uint64
}

// DefaultQueueSize 默认写队列容量
const DefaultQueueSize = 1024

// Open 打开（或创建）日志数据库
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("日志数据库路径为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开日志数据库失败: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	j := &Journal{
		db:  db,
		log: logger.Default().Named("journal"),
		ch:  make(chan req, DefaultQueueSize),
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.loop()
	}()
	return j, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("设置 %s 失败: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS counters (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			catches INTEGER NOT NULL DEFAULT 0,
			fruits INTEGER NOT NULL DEFAULT 0,
			purchases INTEGER NOT NULL DEFAULT 0,
			spawns INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			catches INTEGER NOT NULL DEFAULT 0,
			fruits INTEGER NOT NULL DEFAULT 0,
			purchases INTEGER NOT NULL DEFAULT 0,
			spawns INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			entry TEXT NOT NULL DEFAULT '',
			score REAL NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS events_session ON events(session_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("初始化表结构失败: %w", err)
		}
	}
	return nil
}

// Close 等待队列写完后关闭数据库
func (j *Journal) Close() error {
	var err error
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.ch)
		j.mu.Unlock()
		j.wg.Wait()
		err = j.db.Close()
	})
	return err
}

func (j *Journal) enqueue(r req) {
	if j == nil {
		return
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.ch <- r:
	default:
		n := j.dropped.Add(1)
		j.log.Warn("日志写队列已满，丢弃记录 (累计 %d)", n)
	}
}

// StartSession 新建会话并返回其 ID
func (j *Journal) StartSession() string {
	id := uuid.NewString()
	j.enqueue(req{kind: reqSessionStart, session: id, at: time.Now()})
	return id
}

// EndSession 记录会话结束时的计数
func (j *Journal) EndSession(session string, c Counters) {
	j.enqueue(req{kind: reqSessionEnd, session: session, at: time.Now(), counters: c})
}

// Record 记录一条事件
func (j *Journal) Record(e Entry) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	j.enqueue(req{kind: reqEvent, entry: e})
}

// SaveCounters 保存累计计数
func (j *Journal) SaveCounters(c Counters) {
	j.enqueue(req{kind: reqCounters, at: time.Now(), counters: c})
}

// LoadCounters 读取累计计数，没有记录时返回零值
func (j *Journal) LoadCounters(ctx context.Context) (Counters, error) {
	var c Counters
	err := j.db.QueryRowContext(ctx,
		`SELECT catches, fruits, purchases, spawns FROM counters WHERE id = 1`,
	).Scan(&c.Catches, &c.Fruits, &c.Purchases, &c.Spawns)
	if err == sql.ErrNoRows {
		return Counters{}, nil
	}
	if err != nil {
		return Counters{}, fmt.Errorf("读取计数失败: %w", err)
	}
	return c, nil
}

// Recent 最近的 n 条事件，按时间倒序
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT session_id, at, kind, entry, score FROM events ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("查询事件失败: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.Session, &at, &e.Kind, &e.Entry, &e.Score); err != nil {
			return nil, fmt.Errorf("读取事件失败: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats 写队列状态
func (j *Journal) Stats() Stats {
	return Stats{
		QueueDepth:    len(j.ch),
		QueueCapacity: cap(j.ch),
		Dropped:       j.dropped.Load(),
	}
}

func (j *Journal) loop() {
	ctx := context.Background()
	for r := range j.ch {
		if err := j.apply(ctx, r); err != nil {
			j.log.Warn("写入日志失败: %v", err)
		}
	}
}

func (j *Journal) apply(ctx context.Context, r req) error {
	switch r.kind {
	case reqEvent:
		e := r.entry
		_, err := j.db.ExecContext(ctx,
			`INSERT INTO events(session_id, at, kind, entry, score) VALUES(?,?,?,?,?)`,
			e.Session, e.At.UTC().Format(time.RFC3339Nano), e.Kind, e.Entry, e.Score)
		return err
	case reqCounters:
		c := r.counters
		_, err := j.db.ExecContext(ctx,
			`INSERT INTO counters(id, catches, fruits, purchases, spawns, updated_at) VALUES(1,?,?,?,?,?)
			 ON CONFLICT(id) DO UPDATE SET catches=excluded.catches, fruits=excluded.fruits,
			 purchases=excluded.purchases, spawns=excluded.spawns, updated_at=excluded.updated_at`,
			c.Catches, c.Fruits, c.Purchases, c.Spawns, r.at.UTC().Format(time.RFC3339Nano))
		return err
	case reqSessionStart:
		_, err := j.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO sessions(id, started_at) VALUES(?,?)`,
			r.session, r.at.UTC().Format(time.RFC3339Nano))
		return err
	case reqSessionEnd:
		c := r.counters
		_, err := j.db.ExecContext(ctx,
			`UPDATE sessions SET ended_at=?, catches=?, fruits=?, purchases=?, spawns=? WHERE id=?`,
			r.at.UTC().Format(time.RFC3339Nano), c.Catches, c.Fruits, c.Purchases, c.Spawns, r.session)
		return err
	default:
		return fmt.Errorf("未知请求类型: %d", r.kind)
	}
}
