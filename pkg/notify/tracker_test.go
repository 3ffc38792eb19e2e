package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/notify"
	"github.com/paramtree/paramtree-go/pkg/notify/mocks"
	"github.com/paramtree/paramtree-go/pkg/schema"
)

func newTree(t *testing.T, tracker *notify.Tracker) *model.Tree {
	t.Helper()
	def, err := schema.LoadBundle("tr181")
	require.NoError(t, err)
	tree, err := model.NewTree(def, model.WithChangeListener(tracker))
	require.NoError(t, err)
	return tree
}

func TestTrackerActiveDelivery(t *testing.T) {
	sink := mocks.NewMockSink(t)
	tracker := notify.NewTracker(notify.WithSink(sink))
	tree := newTree(t, tracker)

	sink.EXPECT().Publish(mock.Anything, mock.Anything).
		Run(func(_ context.Context, reports []notify.Report) {
			require.Len(t, reports, 1)
			assert.Equal(t, "Device.DeviceInfo.SoftwareVersion", reports[0].Path)
			assert.Equal(t, "2.1.0", reports[0].Value)
			assert.Equal(t, model.NotificationActive, reports[0].Notification)
		}).
		Return(nil).Once()

	require.NoError(t, tree.SetInternal("Device.DeviceInfo.SoftwareVersion", "2.1.0"))
	require.NoError(t, tracker.Process(context.Background()))

	// Delivered once; nothing left to deliver.
	require.NoError(t, tracker.Process(context.Background()))

	// Still part of the next report.
	reports := tracker.Drain()
	require.Len(t, reports, 1)
	assert.Equal(t, "2.1.0", reports[0].String())
	assert.Empty(t, tracker.Drain())
}

func TestTrackerPassiveNotDelivered(t *testing.T) {
	sink := mocks.NewMockSink(t)
	tracker := notify.NewTracker(notify.WithSink(sink))
	tree := newTree(t, tracker)

	require.NoError(t, tree.SetNotification("Device.DeviceInfo.UpTime", model.NotificationPassive))
	require.NoError(t, tree.SetInternal("Device.DeviceInfo.UpTime", uint32(10)))
	require.NoError(t, tree.SetInternal("Device.DeviceInfo.UpTime", uint32(20)))

	require.NoError(t, tracker.Process(context.Background()))
	sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

	assert.Equal(t, 1, tracker.Pending())
	reports := tracker.Drain()
	require.Len(t, reports, 1)
	assert.Equal(t, uint32(20), reports[0].Value, "only the final value is reported")
}

func TestTrackerIgnoresOff(t *testing.T) {
	tracker := notify.NewTracker()
	tree := newTree(t, tracker)

	require.NoError(t, tree.SetInternal("Device.DeviceInfo.UpTime", uint32(10)))
	assert.Zero(t, tracker.Pending())
}

func TestTrackerOwnWrites(t *testing.T) {
	t.Run("IgnoredByDefault", func(t *testing.T) {
		tracker := notify.NewTracker()
		tree := newTree(t, tracker)
		require.NoError(t, tree.Set("Device.DeviceInfo.ProvisioningCode", "ABC"))
		assert.Zero(t, tracker.Pending())
	})

	t.Run("Reported", func(t *testing.T) {
		cfg := notify.DefaultConfig()
		cfg.IgnoreManagement = false
		tracker := notify.NewTracker(notify.WithConfig(cfg))
		tree := newTree(t, tracker)
		require.NoError(t, tree.Set("Device.DeviceInfo.ProvisioningCode", "ABC"))
		assert.Equal(t, 1, tracker.Pending())
	})
}

func TestTrackerBounceBack(t *testing.T) {
	tracker := notify.NewTracker()
	tree := newTree(t, tracker)

	path := "Device.DeviceInfo.SoftwareVersion"
	require.NoError(t, tree.SetInternal(path, "1.0"))
	tracker.Drain()

	require.NoError(t, tree.SetInternal(path, "1.1"))
	require.NoError(t, tree.SetInternal(path, "1.0"))
	assert.Empty(t, tracker.Drain(), "value returned to the last reported one")

	cfg := notify.DefaultConfig()
	cfg.SuppressBounceBack = false
	noSuppress := notify.NewTracker(notify.WithConfig(cfg))
	tree2 := newTree(t, noSuppress)
	require.NoError(t, tree2.SetInternal(path, "1.1"))
	require.NoError(t, tree2.SetInternal(path, ""))
	assert.Len(t, noSuppress.Drain(), 1)
}

func TestTrackerDeletedRow(t *testing.T) {
	cfg := notify.DefaultConfig()
	cfg.IgnoreManagement = false
	tracker := notify.NewTracker(notify.WithConfig(cfg))
	tree := newTree(t, tracker)

	_, err := tree.AddObject("Device.NAT.PortMapping.")
	require.NoError(t, err)
	require.NoError(t, tree.SetNotification("Device.NAT.PortMapping.1.Description", model.NotificationPassive))
	require.NoError(t, tree.Set("Device.NAT.PortMapping.1.Description", "web"))
	require.NoError(t, tree.DeleteObject("Device.NAT.PortMapping.1."))

	for _, r := range tracker.Drain() {
		assert.NotContains(t, r.Path, "Device.NAT.PortMapping.1.")
	}
}

func TestTrackerCoalescing(t *testing.T) {
	sink := mocks.NewMockSink(t)
	cfg := notify.DefaultConfig()
	cfg.MinInterval = 50 * time.Millisecond
	tracker := notify.NewTracker(notify.WithConfig(cfg), notify.WithSink(sink))
	tree := newTree(t, tracker)

	require.NoError(t, tree.SetInternal("Device.DeviceInfo.SoftwareVersion", "a"))
	require.NoError(t, tree.SetInternal("Device.DeviceInfo.HardwareVersion", "b"))
	require.NoError(t, tree.SetInternal("Device.DeviceInfo.SoftwareVersion", "c"))

	require.NoError(t, tracker.Process(context.Background()))
	sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

	sink.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(rs []notify.Report) bool {
		return len(rs) == 2 &&
			rs[0].Path == "Device.DeviceInfo.HardwareVersion" &&
			rs[1].Path == "Device.DeviceInfo.SoftwareVersion" && rs[1].Value == "c"
	})).Return(nil).Once()

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, tracker.Process(context.Background()))
}

func TestTrackerSinkError(t *testing.T) {
	failing := mocks.NewMockSink(t)
	ok := mocks.NewMockSink(t)
	tracker := notify.NewTracker(notify.WithSink(failing))
	tracker.AddSink(ok)
	tree := newTree(t, tracker)

	boom := errors.New("broker down")
	failing.EXPECT().Publish(mock.Anything, mock.Anything).Return(boom).Once()
	ok.EXPECT().Publish(mock.Anything, mock.Anything).Return(nil).Once()

	require.NoError(t, tree.SetInternal("Device.DeviceInfo.SoftwareVersion", "x"))
	err := tracker.Process(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, tracker.Drain(), 1)
}

func TestTrackerRun(t *testing.T) {
	assert.ErrorIs(t, notify.NewTracker().Run(context.Background()), notify.ErrNoSinks)

	sink := mocks.NewMockSink(t)
	tracker := notify.NewTracker(notify.WithSink(sink))
	tree := newTree(t, tracker)

	delivered := make(chan struct{})
	sink.EXPECT().Publish(mock.Anything, mock.Anything).
		Run(func(context.Context, []notify.Report) { close(delivered) }).
		Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()

	require.NoError(t, tree.SetInternal("Device.DeviceInfo.SoftwareVersion", "9"))
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("active notification not delivered")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
