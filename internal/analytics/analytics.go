// Package analytics отслеживает тренды прогнозов движка очередей.
// Скользящие окна по ожиданию без брони и загрузке, z-score для
// обнаружения всплесков загруженности переправы.
package analytics

import (
	"math"
	"sync"
	"time"

	"ferry-service/internal/models"
)

const (
	// WindowSize размер окна для rolling average и z-score (50 сравнений)
	WindowSize = 50
	// ZScoreThreshold порог всплеска (> 2σ)
	ZScoreThreshold = 2.0
)

// Monitor накапливает прогнозы и ищет всплески загруженности
type Monitor struct {
	mu          sync.RWMutex
	waitWindow  *SlidingWindow
	utilWindow  *SlidingWindow
	observeChan chan models.Observation
	resultsChan chan models.TrendResult
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// SlidingWindow кольцевой буфер с накопленными суммой и суммой квадратов
type SlidingWindow struct {
	values []float64
	size   int
	index  int
	count  int
	sum    float64
	sumSq  float64
}

// NewSlidingWindow создает новое скользящее окно заданного размера
func NewSlidingWindow(size int) *SlidingWindow {
	if size < 1 {
		size = 1
	}
	return &SlidingWindow{
		values: make([]float64, size),
		size:   size,
	}
}

// Add добавляет значение, вытесняя самое старое при заполненном окне
func (sw *SlidingWindow) Add(value float64) {
	if sw.count >= sw.size {
		old := sw.values[sw.index]
		sw.sum -= old
		sw.sumSq -= old * old
	} else {
		sw.count++
	}

	sw.values[sw.index] = value
	sw.sum += value
	sw.sumSq += value * value

	sw.index = (sw.index + 1) % sw.size
}

// Mean возвращает rolling average
func (sw *SlidingWindow) Mean() float64 {
	if sw.count == 0 {
		return 0
	}
	return sw.sum / float64(sw.count)
}

// StdDev возвращает выборочное стандартное отклонение
func (sw *SlidingWindow) StdDev() float64 {
	if sw.count < 2 {
		return 0
	}
	n := float64(sw.count)
	variance := (sw.sumSq - (sw.sum*sw.sum)/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// ZScore вычисляет z-score значения относительно окна
func (sw *SlidingWindow) ZScore(value float64) float64 {
	stdDev := sw.StdDev()
	if stdDev == 0 {
		return 0
	}
	return (value - sw.Mean()) / stdDev
}

// Count возвращает количество элементов в окне
func (sw *SlidingWindow) Count() int {
	return sw.count
}

// NewMonitor создает монитор с буферами заданного размера
func NewMonitor(bufferSize int) *Monitor {
	return &Monitor{
		waitWindow:  NewSlidingWindow(WindowSize),
		utilWindow:  NewSlidingWindow(WindowSize),
		observeChan: make(chan models.Observation, bufferSize),
		resultsChan: make(chan models.TrendResult, bufferSize),
		stopChan:    make(chan struct{}),
	}
}

// Start запускает воркеры обработки наблюдений
func (m *Monitor) Start(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
}

func (m *Monitor) worker() {
	defer m.wg.Done()
	for {
		select {
		case obs := <-m.observeChan:
			result := m.analyze(obs)
			select {
			case m.resultsChan <- result:
			default:
				// канал результатов переполнен
			}
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) analyze(obs models.Observation) models.TrendResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	// z-score до добавления в окно
	zWait := m.waitWindow.ZScore(obs.WalkUpWait)
	zUtil := m.utilWindow.ZScore(obs.Utilization)

	m.waitWindow.Add(obs.WalkUpWait)
	m.utilWindow.Add(obs.Utilization)

	// всплеском считается только рост
	waitSpike := zWait > ZScoreThreshold
	utilSpike := zUtil > ZScoreThreshold

	return models.TrendResult{
		Timestamp:          obs.Timestamp,
		RollingAvgWait:     m.waitWindow.Mean(),
		RollingAvgUtil:     m.utilWindow.Mean(),
		ZScoreWait:         zWait,
		ZScoreUtil:         zUtil,
		IsWaitSpike:        waitSpike,
		IsUtilSpike:        utilSpike,
		CongestionDetected: waitSpike || utilSpike,
	}
}

// Submit ставит наблюдение в очередь; false, если буфер заполнен
func (m *Monitor) Submit(obs models.Observation) bool {
	select {
	case m.observeChan <- obs:
		return true
	default:
		return false
	}
}

// ObserveSync синхронно обрабатывает наблюдение
func (m *Monitor) ObserveSync(obs models.Observation) models.TrendResult {
	return m.analyze(obs)
}

// Results возвращает канал результатов
func (m *Monitor) Results() <-chan models.TrendResult {
	return m.resultsChan
}

// Stats возвращает текущие средние и отклонения
func (m *Monitor) Stats() (avgWait, avgUtil, stdDevWait, stdDevUtil float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.waitWindow.Mean(), m.utilWindow.Mean(),
		m.waitWindow.StdDev(), m.utilWindow.StdDev()
}

// Observed возвращает число наблюдений в окне
func (m *Monitor) Observed() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.waitWindow.Count()
}

// Stop останавливает воркеры и закрывает канал результатов
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
		close(m.resultsChan)
	})
}

// ObservationFrom строит наблюдение из результата сравнения
func ObservationFrom(res models.ComparisonResult, at time.Time) models.Observation {
	return models.Observation{
		Timestamp:    at,
		WalkUpWait:   res.WithoutReservation.WaitTime,
		ReservedWait: res.WithReservation.WaitTime,
		Utilization:  res.WithoutReservation.Utilization,
		Regime:       res.WithoutReservation.Model,
	}
}
