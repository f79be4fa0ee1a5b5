package journal

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/zoeyai/reelworker/internal/logger"
)

func TestCountersSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("打开日志失败: %v", err)
	}
	session := j.StartSession()
	j.Record(Entry{Session: session, Kind: "fruit_drop", Entry: "Flame-Flame Fruit", Score: 0.94})
	j.Record(Entry{Session: session, Kind: "purchase"})
	want := Counters{Catches: 51, Fruits: 1, Purchases: 1}
	j.SaveCounters(want)
	j.EndSession(session, want)
	if err := j.Close(); err != nil {
		t.Fatalf("关闭日志失败: %v", err)
	}

	j, err = Open(path)
	if err != nil {
		t.Fatalf("重新打开日志失败: %v", err)
	}
	defer j.Close()

	got, err := j.LoadCounters(context.Background())
	if err != nil {
		t.Fatalf("读取计数失败: %v", err)
	}
	if got != want {
		t.Errorf("计数不一致: %+v != %+v", got, want)
	}

	events, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("查询事件失败: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("期望 2 条事件, 实际 %d", len(events))
	}
	if events[0].Kind != "purchase" || events[1].Entry != "Flame-Flame Fruit" {
		t.Errorf("事件顺序错误: %+v", events)
	}
	if events[1].Session != session || events[1].At.IsZero() {
		t.Errorf("事件字段缺失: %+v", events[1])
	}
}

func TestLoadCountersEmpty(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "sub", "journal.db"))
	if err != nil {
		t.Fatalf("打开日志失败: %v", err)
	}
	defer j.Close()

	c, err := j.LoadCounters(context.Background())
	if err != nil {
		t.Fatalf("读取计数失败: %v", err)
	}
	if c != (Counters{}) {
		t.Errorf("新数据库计数应为零: %+v", c)
	}
}

func TestQueueDropStats(t *testing.T) {
	j := &Journal{
		ch:  make(chan req, 1),
		log: logger.NewWithWriter(io.Discard, logger.DEBUG),
	}
	j.Record(Entry{Kind: "a"})
	j.Record(Entry{Kind: "b"})
	j.SaveCounters(Counters{})

	st := j.Stats()
	if st.Dropped != 2 {
		t.Errorf("Dropped=%d want=2", st.Dropped)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Errorf("队列状态错误: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestWritesAfterCloseIgnored(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("打开日志失败: %v", err)
	}
	j.Close()
	j.Record(Entry{Kind: "late"})
	j.SaveCounters(Counters{Catches: 1})
	if err := j.Close(); err != nil {
		t.Errorf("重复关闭不应报错: %v", err)
	}
}

func TestRecordConcurrentWithClose(t *testing.T) {
	for round := 0; round < 20; round++ {
		j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
		if err != nil {
			t.Fatalf("打开日志失败: %v", err)
		}
		j.log = logger.NewWithWriter(io.Discard, logger.DEBUG)

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					j.Record(Entry{Kind: "catch"})
					j.SaveCounters(Counters{Catches: i})
				}
			}()
		}
		if err := j.Close(); err != nil {
			t.Errorf("关闭日志失败: %v", err)
		}
		wg.Wait()
	}
}
