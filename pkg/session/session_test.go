package session

import (
	"context"
	"encoding/csv"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/benchprof/pkg/metrics"
	"github.com/ja7ad/benchprof/pkg/recorder"
	"github.com/ja7ad/benchprof/pkg/rendezvous"
	"github.com/ja7ad/benchprof/pkg/system/proc"
	"github.com/ja7ad/benchprof/pkg/types"
)

// fakeSampler returns fixed readings. afterTick runs at the end of every
// tick with the tick number (1-based); failAt makes CPU fail on that tick.
type fakeSampler struct {
	cores     int
	ticks     int
	failAt    int
	afterTick func(n int)
}

func (f *fakeSampler) Cores() int { return f.cores }

func (f *fakeSampler) CPU(context.Context) (float64, error) {
	f.ticks++
	if f.failAt > 0 && f.ticks == f.failAt {
		return 0, metrics.ErrUnavailable
	}
	return 25, nil
}

func (f *fakeSampler) PerCore(context.Context) ([]float64, error) {
	out := make([]float64, f.cores)
	for i := range out {
		out[i] = 12.5
	}
	return out, nil
}

func (f *fakeSampler) RAM(context.Context) (types.Memory, error) {
	return types.Memory{Percent: 50, Used: types.ToBytes(4 << 30)}, nil
}

func (f *fakeSampler) Swap(context.Context) (types.Memory, error) {
	if f.afterTick != nil {
		f.afterTick(f.ticks)
	}
	return types.Memory{Percent: 1, Used: types.ToBytes(1 << 28)}, nil
}

type seqTable struct {
	mu    sync.Mutex
	snaps [][]proc.Process
	calls int
}

func (s *seqTable) Processes(context.Context) ([]proc.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.snaps) {
		i = len(s.snaps) - 1
	}
	s.calls++
	return s.snaps[i], nil
}

type countingHandshaker struct {
	waits int
	stops int
}

func (c *countingHandshaker) WaitForStart(context.Context, string) (bool, error) {
	c.waits++
	return true, nil
}

func (c *countingHandshaker) Stop() error {
	c.stops++
	return nil
}

var (
	other   = []proc.Process{{PID: 100, Args: []string{"python3", "jupyter.py"}}}
	matched = []proc.Process{
		{PID: 100, Args: []string{"python3", "jupyter.py"}},
		{PID: 200, Args: []string{"/usr/bin/python3", "src/bench.py", "--num_records", "1000"}},
	}
)

type harness struct {
	opts        Options
	transitions [][2]State
}

func newHarness(t *testing.T, sampler metrics.Sampler, table proc.Table, listen func(context.Context) (Handshaker, error)) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{}
	h.opts = Options{
		Target:         "bench",
		TimeSeriesPath: filepath.Join(dir, "system_stats_bench_20240101_000000.csv"),
		SummaryPath:    filepath.Join(dir, recorder.DefaultSummaryFile),
		Sampler:        sampler,
		Table:          table,
		Listen:         listen,
		Summary:        StaticSource{ExecutionTime: "1.5", Records: "1000"},
		OnTransition: func(from, to State) {
			h.transitions = append(h.transitions, [2]State{from, to})
		},
	}
	return h
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestSession_HandshakeOnlyOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hs := &countingHandshaker{}
	sampler := &fakeSampler{cores: 2, afterTick: func(n int) {
		if n == 6 {
			cancel()
		}
	}}
	// not-running -> running -> not-running -> running, twice over
	table := &seqTable{snaps: [][]proc.Process{other, matched, other, matched, other, matched}}

	h := newHarness(t, sampler, table, func(context.Context) (Handshaker, error) { return hs, nil })
	s, err := New(h.opts)
	require.NoError(t, err)

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 1, hs.waits)
	assert.GreaterOrEqual(t, hs.stops, 1)
	assert.Equal(t, Done, s.State())
	assert.Equal(t, [][2]State{
		{Idle, WaitingForTarget},
		{WaitingForTarget, Handshaking},
		{Handshaking, Sampling},
		{Sampling, Finalizing},
		{Finalizing, Done},
	}, h.transitions)

	recs := readCSV(t, h.opts.TimeSeriesPath)
	require.Len(t, recs, 1+6)
	running := []string{}
	for _, rec := range recs[1:] {
		running = append(running, rec[len(rec)-1])
	}
	assert.Equal(t, []string{"false", "true", "false", "true", "false", "true"}, running)
	assert.Equal(t, 3, s.Stats().Samples)
}

func TestSession_EndToEndWithRendezvous(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ports := make(chan int, 1)
	listen := func(ctx context.Context) (Handshaker, error) {
		srv, err := rendezvous.Listen(ctx, rendezvous.Config{Host: "127.0.0.1", Port: 0}, nil)
		if err != nil {
			return nil, err
		}
		ports <- srv.Addr().(*net.TCPAddr).Port
		return srv, nil
	}

	clientErr := make(chan error, 1)
	go func() {
		port := <-ports
		c, err := rendezvous.Dial(context.Background(), rendezvous.Config{Host: "127.0.0.1", Port: port})
		if err != nil {
			clientErr <- err
			return
		}
		clientErr <- c.SendStart()
	}()

	var h *harness
	sampler := &fakeSampler{cores: 3}
	sampler.afterTick = func(n int) {
		if n >= 4 {
			cancel()
		}
	}
	table := &seqTable{snaps: [][]proc.Process{other, matched}}
	h = newHarness(t, sampler, table, listen)
	h.opts.Summary = StaticSource{ExecutionTime: "not a number", Records: "250"}

	s, err := New(h.opts)
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx))
	require.NoError(t, <-clientErr)

	require.GreaterOrEqual(t, len(h.transitions), 3)
	assert.Equal(t, [][2]State{
		{Idle, WaitingForTarget},
		{WaitingForTarget, Handshaking},
		{Handshaking, Sampling},
	}, h.transitions[:3])

	recs := readCSV(t, h.opts.TimeSeriesPath)
	header := recs[0]
	assert.Len(t, header, 2+3+4+1)
	sawRunning := false
	for _, rec := range recs[1:] {
		assert.Len(t, rec, len(header))
		if rec[len(rec)-1] == "true" {
			sawRunning = true
		}
	}
	assert.Equal(t, "false", recs[1][len(header)-1], "baseline row before the target starts")
	assert.True(t, sawRunning)

	summary := readCSV(t, h.opts.SummaryPath)
	assert.Equal(t, [][]string{
		{"filename", "records", "time"},
		{"system_stats_bench_20240101_000000", "250", "0.0"},
	}, summary)
}

func TestSession_InterruptBeforeTarget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hs := &countingHandshaker{}
	sampler := &fakeSampler{cores: 1, afterTick: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	h := newHarness(t, sampler, &seqTable{snaps: [][]proc.Process{other}}, func(context.Context) (Handshaker, error) { return hs, nil })
	s, err := New(h.opts)
	require.NoError(t, err)

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 0, hs.waits)
	assert.Equal(t, [][2]State{
		{Idle, WaitingForTarget},
		{WaitingForTarget, Finalizing},
		{Finalizing, Done},
	}, h.transitions)

	summary := readCSV(t, h.opts.SummaryPath)
	require.Len(t, summary, 2)
	assert.Equal(t, []string{"system_stats_bench_20240101_000000", "1000", "1.5"}, summary[1])
}

func TestSession_MetricsFailureIsFatal(t *testing.T) {
	hs := &countingHandshaker{}
	sampler := &fakeSampler{cores: 2, failAt: 2}
	h := newHarness(t, sampler, &seqTable{snaps: [][]proc.Process{other}}, func(context.Context) (Handshaker, error) { return hs, nil })
	s, err := New(h.opts)
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, metrics.ErrUnavailable))
	assert.Equal(t, WaitingForTarget, s.State())
	assert.GreaterOrEqual(t, hs.stops, 1, "listener released on the fatal path")

	_, statErr := os.Stat(h.opts.SummaryPath)
	assert.True(t, os.IsNotExist(statErr), "no summary row after a fatal error")
	assert.Len(t, readCSV(t, h.opts.TimeSeriesPath), 2, "header plus the one completed tick")
}

func TestSession_BindFailureIsFatal(t *testing.T) {
	h := newHarness(t, &fakeSampler{cores: 1}, &seqTable{snaps: [][]proc.Process{other}}, func(context.Context) (Handshaker, error) {
		return nil, rendezvous.ErrBind
	})
	s, err := New(h.opts)
	require.NoError(t, err)

	err = s.Run(context.Background())
	assert.ErrorIs(t, err, rendezvous.ErrBind)
}

func TestSession_RunTwice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newHarness(t, &fakeSampler{cores: 1}, &seqTable{snaps: [][]proc.Process{other}}, func(context.Context) (Handshaker, error) {
		return &countingHandshaker{}, nil
	})
	s, err := New(h.opts)
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx))
	assert.ErrorIs(t, s.Run(ctx), ErrIllegalTransition)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	h := newHarness(t, &fakeSampler{cores: 1}, &seqTable{snaps: [][]proc.Process{other}}, func(context.Context) (Handshaker, error) { return nil, nil })
	h.opts.Sampler = nil
	_, err = New(h.opts)
	require.Error(t, err)
}

func TestSession_IntervalHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(t, &fakeSampler{cores: 1}, &seqTable{snaps: [][]proc.Process{other}}, func(context.Context) (Handshaker, error) {
		return &countingHandshaker{}, nil
	})
	h.opts.Interval = time.Hour
	s, err := New(h.opts)
	require.NoError(t, err)

	time.AfterFunc(50*time.Millisecond, cancel)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop on interrupt")
	}
}
