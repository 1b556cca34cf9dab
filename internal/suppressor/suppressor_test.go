package suppressor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"ecodetect-alert/internal/models"

	"github.com/stretchr/testify/assert"
)

// fakeClock 可推进的测试时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSuppressor(ttl time.Duration, maxEntries int) (*Suppressor, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(ttl, maxEntries)
	s.now = clock.Now
	return s, clock
}

func TestShouldSuppress_WithinWindow(t *testing.T) {
	s, clock := newTestSuppressor(15*time.Minute, 100)

	key := models.SuppressionKey("Main_Pi", []models.Condition{models.ConditionTemperatureHigh})

	assert.False(t, s.ShouldSuppress(key))
	s.RecordFired(key)

	// 窗口内第二次触发被拦下
	clock.Advance(5 * time.Minute)
	assert.True(t, s.ShouldSuppress(key))

	// 窗口过后放行
	clock.Advance(11 * time.Minute)
	assert.False(t, s.ShouldSuppress(key))
}

func TestShouldSuppress_ExpiredEntryEvicted(t *testing.T) {
	s, clock := newTestSuppressor(15*time.Minute, 100)

	s.RecordFired("key-1")
	clock.Advance(16 * time.Minute)

	assert.False(t, s.ShouldSuppress("key-1"))
	assert.Equal(t, 0, s.Len())
}

func TestSuppressionKey_OrderIndependent(t *testing.T) {
	a := models.SuppressionKey("Main_Pi", []models.Condition{
		models.ConditionTemperatureHigh,
		models.ConditionHumidityLow,
	})
	b := models.SuppressionKey("Main_Pi", []models.Condition{
		models.ConditionHumidityLow,
		models.ConditionTemperatureHigh,
	})

	assert.Equal(t, a, b)
	assert.Equal(t, "Main_Pi_humidity_low,temperature_high", a)
}

func TestRecordFired_SweepAtCapacity(t *testing.T) {
	s, clock := newTestSuppressor(15*time.Minute, 10)

	// 写满 10 条后推进时间使其全部过期
	for i := 0; i < 10; i++ {
		s.RecordFired(fmt.Sprintf("old-%d", i))
	}
	clock.Advance(16 * time.Minute)

	// 第 11 条触发清理，过期条目被清掉
	s.RecordFired("fresh")

	assert.Equal(t, 1, s.Len())
	assert.True(t, s.ShouldSuppress("fresh"))
}

func TestSuppressor_ConcurrentAccess(t *testing.T) {
	s, _ := newTestSuppressor(15*time.Minute, 50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("device-%d", n%5)
			for j := 0; j < 100; j++ {
				s.RecordFired(key)
				s.ShouldSuppress(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, s.Len())
}

func TestNew_Defaults(t *testing.T) {
	s := New(0, 0)

	assert.Equal(t, DefaultTTL, s.ttl)
	assert.Equal(t, DefaultMaxEntries, s.maxEntries)
}
