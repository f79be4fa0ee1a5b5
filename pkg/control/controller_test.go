package control

import (
	"errors"
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestScenarioHoldWhenBehind(t *testing.T) {
	c := New(Options{Kp: 0.5, Kd: 0.1, Deadband: 5, MaxMissed: 3, MinDt: time.Millisecond})
	zone := Zone{Min: 150, Max: 250} // 中心 200

	// 上一次误差 -60
	if _, err := c.Update(Sample{Pos: 140, Found: true, At: at(0)}, zone); err != nil {
		t.Fatalf("Update 失败: %v", err)
	}
	// 误差 -50，Δt = 50ms
	cmd, err := c.Update(Sample{Pos: 150, Found: true, At: at(50)}, zone)
	if err != nil {
		t.Fatalf("Update 失败: %v", err)
	}

	// u = 0.5*-50 + 0.1*(10/0.05) = -25 + 20 = -5
	if cmd.Kind != Hold {
		t.Errorf("期望 Hold, 实际 %s", cmd)
	}
	if math.Abs(cmd.Output-(-5)) > 1e-9 {
		t.Errorf("期望 u=-5, 实际 %v", cmd.Output)
	}
	t.Logf("指令: %s", cmd)
}

func TestDeadbandRelease(t *testing.T) {
	c := New(Options{Kp: 10, Kd: 10, Deadband: 5})
	zone := Zone{Min: 90, Max: 110}

	tests := []struct {
		pos float64
	}{{100}, {95}, {105}, {102.5}}
	for i, tt := range tests {
		cmd, err := c.Update(Sample{Pos: tt.pos, Found: true, At: at(i * 40)}, zone)
		if err != nil {
			t.Fatalf("Update 失败: %v", err)
		}
		if cmd.Kind != Release {
			t.Errorf("pos=%v 在死区内应 Release, 实际 %s", tt.pos, cmd)
		}
	}
}

func TestFirstSampleHasNoDerivative(t *testing.T) {
	c := New(Options{Kp: 0, Kd: 100})
	zone := Zone{Min: 0, Max: 100}

	cmd, _ := c.Update(Sample{Pos: 0, Found: true, At: at(0)}, zone)
	if cmd.Kind != Release || cmd.Output != 0 {
		t.Errorf("重置后首次采样微分应为 0, 实际 %s", cmd)
	}
}

func TestMissResetsAfterTolerance(t *testing.T) {
	c := New(Options{Kp: 1, MaxMissed: 2})
	zone := Zone{Min: 100, Max: 200}

	cmd, _ := c.Update(Sample{Pos: 50, Found: true, At: at(0)}, zone)
	if cmd.Kind != Hold {
		t.Fatalf("期望 Hold, 实际 %s", cmd)
	}

	// 容忍范围内沿用上一条指令
	for i := 1; i <= 2; i++ {
		cmd, _ = c.Update(Sample{At: at(i * 40)}, zone)
		if cmd.Kind != Hold {
			t.Errorf("第 %d 次丢失应沿用 Hold, 实际 %s", i, cmd)
		}
	}

	cmd, _ = c.Update(Sample{At: at(120)}, zone)
	if cmd.Kind != Release {
		t.Errorf("超过容忍次数应 Release, 实际 %s", cmd)
	}
	if c.Missed() != 0 {
		t.Errorf("重置后丢失计数应为 0, 实际 %d", c.Missed())
	}

	// 重置后首次采样没有微分项
	c2 := New(Options{Kd: 1})
	c2.Update(Sample{Pos: 50, Found: true, At: at(0)}, zone)
	cmd, _ = c2.Update(Sample{Pos: 50, Found: true, At: at(40)}, zone)
	if cmd.Output != 0 {
		t.Errorf("误差不变时微分应为 0, 实际 %v", cmd.Output)
	}
}

func TestZeroGainsRelease(t *testing.T) {
	c := New(Options{})
	zone := Zone{Min: 100, Max: 200}
	for i, pos := range []float64{0, 50, 300, 1000} {
		cmd, err := c.Update(Sample{Pos: pos, Found: true, At: at(i * 40)}, zone)
		if err != nil {
			t.Fatalf("Update 失败: %v", err)
		}
		if cmd.Kind != Release {
			t.Errorf("零增益应 Release, pos=%v 实际 %s", pos, cmd)
		}
	}
}

func TestZoneUndefined(t *testing.T) {
	c := New(Options{Kp: 1})
	cmd, err := c.Update(Sample{Pos: 10, Found: true, At: at(0)}, Zone{})
	if !errors.Is(err, ErrZoneUndefined) {
		t.Errorf("期望 ErrZoneUndefined, 实际 %v", err)
	}
	if cmd.Kind != Release {
		t.Errorf("目标区未定义应 Release, 实际 %s", cmd)
	}
}

func TestEdgeMode(t *testing.T) {
	c := New(Options{Kp: 1, Mode: ModeEdge})
	zone := Zone{Min: 100, Max: 200}

	tests := []struct {
		pos  float64
		want CommandKind
		u    float64
	}{
		{pos: 150, want: Release, u: 0},
		{pos: 90, want: Hold, u: -10},
		{pos: 230, want: Release, u: 30},
	}
	for i, tt := range tests {
		c.Reset()
		cmd, _ := c.Update(Sample{Pos: tt.pos, Found: true, At: at(i * 40)}, zone)
		if cmd.Kind != tt.want || cmd.Output != tt.u {
			t.Errorf("pos=%v: 期望 %s u=%v, 实际 %s", tt.pos, tt.want, tt.u, cmd)
		}
	}
}

func TestInvert(t *testing.T) {
	c := New(Options{Kp: 1, Invert: true})
	zone := Zone{Min: 100, Max: 200}

	cmd, _ := c.Update(Sample{Pos: 250, Found: true, At: at(0)}, zone)
	if cmd.Kind != Hold {
		t.Errorf("反向时 u>0 应 Hold, 实际 %s", cmd)
	}
	c.Reset()
	cmd, _ = c.Update(Sample{Pos: 50, Found: true, At: at(40)}, zone)
	if cmd.Kind != Release {
		t.Errorf("反向时 u<0 应 Release, 实际 %s", cmd)
	}
}

func TestPulseMode(t *testing.T) {
	c := New(Options{
		Kp:         1,
		Output:     OutputPulse,
		PulseScale: 2 * time.Millisecond,
		MaxPulse:   50 * time.Millisecond,
	})
	zone := Zone{Min: 100, Max: 200}

	cmd, _ := c.Update(Sample{Pos: 140, Found: true, At: at(0)}, zone) // u = -10
	if cmd.Kind != Pulse || cmd.Duration != 20*time.Millisecond {
		t.Errorf("期望 Pulse(20ms), 实际 %s", cmd)
	}

	c.Reset()
	cmd, _ = c.Update(Sample{Pos: 0, Found: true, At: at(40)}, zone) // u = -150
	if cmd.Kind != Pulse || cmd.Duration != 50*time.Millisecond {
		t.Errorf("点按时长应被限制为 50ms, 实际 %s", cmd)
	}
}

func TestDtClamp(t *testing.T) {
	c := New(Options{Kd: 1, MinDt: 10 * time.Millisecond})
	zone := Zone{Min: 100, Max: 200}

	c.Update(Sample{Pos: 150, Found: true, At: at(0)}, zone)
	// 同一时间戳，Δt 被限制为 10ms：微分 = -10/0.01 = -1000
	cmd, _ := c.Update(Sample{Pos: 140, Found: true, At: at(0)}, zone)
	if math.IsInf(cmd.Output, 0) || math.IsNaN(cmd.Output) {
		t.Fatalf("Δt 为 0 时输出不应发散: %v", cmd.Output)
	}
	if math.Abs(cmd.Output-(-1000)) > 1e-6 {
		t.Errorf("期望 u=-1000, 实际 %v", cmd.Output)
	}
}
