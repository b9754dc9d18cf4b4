package completionworker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/dispatch"
	"github.com/stagehand-app/stagehand/internal/domain/model"
	apperrors "github.com/stagehand-app/stagehand/internal/errors"
	"github.com/stagehand-app/stagehand/internal/mocks"
	"github.com/stagehand-app/stagehand/internal/service"
	"github.com/stagehand-app/stagehand/internal/testutil"
)

var completedAt = time.Date(2025, 3, 10, 16, 45, 0, 0, time.UTC)

type stubRenderer struct {
	rendered []*model.CompletionDocument
	err      error
}

func (r *stubRenderer) Render(_ context.Context, doc *model.CompletionDocument) ([]byte, string, error) {
	if r.err != nil {
		return nil, "", r.err
	}
	r.rendered = append(r.rendered, doc)
	return []byte("<html>report</html>"), "text/html; charset=utf-8", nil
}

type workerFixture struct {
	worker   *Worker
	store    *mocks.MockRecordStore
	mailer   *testutil.CaptureMailer
	renderer *stubRenderer
	queue    *dispatch.Queue
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordStore(ctrl)
	mailer := &testutil.CaptureMailer{}
	renderer := &stubRenderer{}
	queue := dispatch.NewQueue(8, testutil.SilentLogger())
	exec := testutil.FastExecutor()

	docs, err := service.NewDocumentService(service.DocumentServiceOptions{
		Store:    store,
		Renderer: renderer,
		Exec:     exec,
		LogoURL:  "https://cdn.stagehand.app/assets/logo.png",
		Logger:   testutil.SilentLogger(),
	})
	require.NoError(t, err)

	worker, err := NewWorker(Options{
		Queue:       queue,
		Store:       store,
		Mailer:      mailer,
		Documents:   docs,
		Exec:        exec,
		Concurrency: 1,
		Logger:      testutil.SilentLogger(),
	})
	require.NoError(t, err)

	return &workerFixture{worker: worker, store: store, mailer: mailer, renderer: renderer, queue: queue}
}

func deliveryPayload() *model.BackgroundCompletionPayload {
	return &model.BackgroundCompletionPayload{
		DispatchID:       "dispatch-1",
		JobID:            "job-1",
		JobKind:          model.JobKindDelivery,
		ActorID:          "crew-1",
		Notes:            "left at loading dock",
		NotifyRecipients: []string{"client@example.com"},
		Recipient:        model.Recipient{ID: "crew-1", Name: "Sam", Email: "sam@example.com"},
		VenueID:          "venue-9",
		CompletedAt:      completedAt,
	}
}

func warehousePayload() *model.BackgroundCompletionPayload {
	p := deliveryPayload()
	p.JobKind = model.JobKindWarehouse
	p.VenueID = ""
	p.NotifyRecipients = nil
	return p
}

func TestProcessDeliverySendsReportToClients(t *testing.T) {
	f := newWorkerFixture(t)
	payload := deliveryPayload()

	f.store.EXPECT().GetVenueName(gomock.Any(), "venue-9").Return("Grand Hall", nil)
	f.store.EXPECT().GetJobLineItems(gomock.Any(), "job-1").
		Return([]model.LineItem{{Name: "PA system", Quantity: 2}}, nil)

	f.worker.Process(context.Background(), payload)

	require.Len(t, f.renderer.rendered, 1)
	doc := f.renderer.rendered[0]
	assert.Equal(t, "Grand Hall", doc.VenueName)
	assert.Len(t, doc.LineItems, 1)
	assert.Equal(t, "https://cdn.stagehand.app/assets/logo.png", doc.LogoURL)

	sent := f.mailer.Sent()
	require.Len(t, sent, 2)

	recipientMsg := sent[0]
	assert.Equal(t, []string{"sam@example.com"}, recipientMsg.To)
	assert.Empty(t, recipientMsg.Attachments)

	clientMsg := sent[1]
	assert.Equal(t, []string{"client@example.com"}, clientMsg.To)
	require.Len(t, clientMsg.Attachments, 1)
	assert.Equal(t, "completion-report-job-1.html", clientMsg.Attachments[0].Filename)
}

func TestProcessWarehouseFlipsStatusWithoutDocument(t *testing.T) {
	f := newWorkerFixture(t)

	f.store.EXPECT().MarkWarehouseComplete(gomock.Any(), "job-1").Return(nil)

	f.worker.Process(context.Background(), warehousePayload())

	assert.Empty(t, f.renderer.rendered)
	// Recipient confirmation only; no client recipients configured.
	assert.Len(t, f.mailer.Sent(), 1)
}

func TestProcessWarehouseFlipRetriesTransientFailure(t *testing.T) {
	f := newWorkerFixture(t)

	first := f.store.EXPECT().MarkWarehouseComplete(gomock.Any(), "job-1").
		Return(apperrors.Unavailable("remote down"))
	f.store.EXPECT().MarkWarehouseComplete(gomock.Any(), "job-1").Return(nil).After(first)

	f.worker.Process(context.Background(), warehousePayload())
}

func TestProcessVenueLookupFailsOpen(t *testing.T) {
	f := newWorkerFixture(t)
	payload := deliveryPayload()

	f.store.EXPECT().GetVenueName(gomock.Any(), "venue-9").
		Return("", apperrors.External("venue service down"))
	f.store.EXPECT().GetJobLineItems(gomock.Any(), "job-1").Return(nil, nil)

	f.worker.Process(context.Background(), payload)

	require.Len(t, f.renderer.rendered, 1)
	assert.Empty(t, f.renderer.rendered[0].VenueName)
	assert.Len(t, f.mailer.Sent(), 2)
}

func TestProcessStepsAreIndependent(t *testing.T) {
	f := newWorkerFixture(t)
	payload := deliveryPayload()
	payload.JobKind = model.JobKindWarehouse

	// Recipient email fails; the client email and the status flip still run.
	var clientSends []core.Message
	f.mailer.SendFunc = func(_ context.Context, msg core.Message) error {
		if msg.To[0] == "sam@example.com" {
			return apperrors.External("mail API rejected")
		}
		clientSends = append(clientSends, msg)
		return nil
	}

	f.store.EXPECT().GetVenueName(gomock.Any(), "venue-9").Return("Grand Hall", nil)
	f.store.EXPECT().MarkWarehouseComplete(gomock.Any(), "job-1").Return(nil)

	f.worker.Process(context.Background(), payload)

	require.Len(t, clientSends, 1)
	assert.Equal(t, []string{"client@example.com"}, clientSends[0].To)
}

func TestProcessRenderFailureStillNotifies(t *testing.T) {
	f := newWorkerFixture(t)
	payload := deliveryPayload()
	f.renderer.err = apperrors.Internal("template broke")

	f.store.EXPECT().GetVenueName(gomock.Any(), "venue-9").Return("Grand Hall", nil)
	f.store.EXPECT().GetJobLineItems(gomock.Any(), "job-1").Return(nil, nil)

	f.worker.Process(context.Background(), payload)

	sent := f.mailer.Sent()
	require.Len(t, sent, 2)
	// Client email goes out without the attachment.
	assert.Empty(t, sent[1].Attachments)
}

func TestRunDrainsQueueUntilClosed(t *testing.T) {
	f := newWorkerFixture(t)

	f.store.EXPECT().MarkWarehouseComplete(gomock.Any(), "job-1").Return(nil).Times(3)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.queue.Dispatch(ctx, warehousePayload()))
	}
	f.queue.Close()

	require.NoError(t, f.worker.Run(ctx))
	assert.Len(t, f.mailer.Sent(), 3)
}

func TestRunDrainsEnqueuedPayloadsAfterCancel(t *testing.T) {
	f := newWorkerFixture(t)

	f.store.EXPECT().MarkWarehouseComplete(gomock.Any(), "job-1").
		DoAndReturn(func(ctx context.Context, _ string) error {
			// Drained payloads run under a live grace context, not the
			// cancelled run context.
			assert.NoError(t, ctx.Err())
			return nil
		}).Times(2)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.queue.Dispatch(context.Background(), warehousePayload()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.queue.Close()

	require.NoError(t, f.worker.Run(ctx))
	assert.Len(t, f.mailer.Sent(), 2)
}
