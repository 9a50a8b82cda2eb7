// internal/services/progress_service_test.go
package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressService_CleanupEvictsExpiredTerminalTrackers(t *testing.T) {
	svc := NewProgressService()

	completed := svc.CreateTracker("task-completed")
	completed.Complete("")
	failed := svc.CreateTracker("task-failed")
	failed.Fail("backend down")
	svc.CreateTracker("task-running")

	// 把终态追踪器的更新时间拨回到保留期之外
	for _, tracker := range []*ProgressTracker{completed, failed} {
		tracker.mutex.Lock()
		tracker.UpdateTime = time.Now().Add(-time.Hour)
		tracker.mutex.Unlock()
	}

	svc.CleanupCompletedTasks(30 * time.Minute)

	_, exists := svc.GetTracker("task-completed")
	assert.False(t, exists)
	_, exists = svc.GetTracker("task-failed")
	assert.False(t, exists)
	_, exists = svc.GetTracker("task-running")
	assert.True(t, exists, "运行中的任务不应被清理")
}

func TestProgressService_CleanupKeepsRecentCompleted(t *testing.T) {
	svc := NewProgressService()

	tracker := svc.CreateTracker("task-fresh")
	tracker.Complete("done")

	svc.CleanupCompletedTasks(30 * time.Minute)

	_, exists := svc.GetTracker("task-fresh")
	assert.True(t, exists, "刚完成的任务在保留期内不应被清理")
}

func TestProgressService_CleanupKeepsOldRunning(t *testing.T) {
	svc := NewProgressService()

	tracker := svc.CreateTracker("task-slow")
	tracker.mutex.Lock()
	tracker.UpdateTime = time.Now().Add(-time.Hour)
	tracker.mutex.Unlock()

	svc.CleanupCompletedTasks(30 * time.Minute)

	_, exists := svc.GetTracker("task-slow")
	assert.True(t, exists, "未到终态的任务不应被清理")
}

func TestProgressTracker_SnapshotReflectsUpdates(t *testing.T) {
	svc := NewProgressService()
	tracker := svc.CreateTracker("task-snap")

	tracker.UpdateProgress(42, "正在校验生成结果")

	snap := tracker.Snapshot()
	require.Equal(t, "task-snap", snap.TaskID)
	assert.Equal(t, 42, snap.Progress)
	assert.Equal(t, "正在校验生成结果", snap.Message)
	assert.Equal(t, "running", snap.Status)
	assert.False(t, snap.UpdateTime.IsZero())

	tracker.Complete("脚本生成完成")

	snap = tracker.Snapshot()
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, "completed", snap.Status)
}

func TestProgressTracker_SnapshotConcurrentWithUpdates(t *testing.T) {
	svc := NewProgressService()
	tracker := svc.CreateTracker("task-race")

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 1; i <= 100; i++ {
			tracker.UpdateProgress(i, "working")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			snap := tracker.Snapshot()
			assert.GreaterOrEqual(t, snap.Progress, 0)
			assert.LessOrEqual(t, snap.Progress, 100)
		}
	}()

	wg.Wait()
}
