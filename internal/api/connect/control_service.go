package connect

import (
	"context"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/osa030/19deck/internal/app/playback"
	"github.com/osa030/19deck/internal/app/queue"
	"github.com/osa030/19deck/internal/app/session"
	"github.com/osa030/19deck/internal/domain/playmode"
)

// ControlServiceName is the fully-qualified name of the control service.
const ControlServiceName = "deck.v1.ControlService"

// Procedure paths of the control service.
const (
	GetStatusProcedure         = "/" + ControlServiceName + "/GetStatus"
	GetQueueProcedure          = "/" + ControlServiceName + "/GetQueue"
	GetPersistedQueueProcedure = "/" + ControlServiceName + "/GetPersistedQueue"
	AddProcedure               = "/" + ControlServiceName + "/Add"
	InsertProcedure            = "/" + ControlServiceName + "/Insert"
	ReplaceProcedure           = "/" + ControlServiceName + "/Replace"
	RemoveProcedure            = "/" + ControlServiceName + "/Remove"
	MoveProcedure              = "/" + ControlServiceName + "/Move"
	ClearProcedure             = "/" + ControlServiceName + "/Clear"
	PlayIndexProcedure         = "/" + ControlServiceName + "/PlayIndex"
	PlayNextProcedure          = "/" + ControlServiceName + "/PlayNext"
	PlayPreviousProcedure      = "/" + ControlServiceName + "/PlayPrevious"
	SkipNextProcedure          = "/" + ControlServiceName + "/SkipNext"
	SkipPreviousProcedure      = "/" + ControlServiceName + "/SkipPrevious"
	PauseProcedure             = "/" + ControlServiceName + "/Pause"
	ResumeProcedure            = "/" + ControlServiceName + "/Resume"
	TogglePlayProcedure        = "/" + ControlServiceName + "/TogglePlay"
	StopProcedure              = "/" + ControlServiceName + "/Stop"
	SeekProcedure              = "/" + ControlServiceName + "/Seek"
	SetVolumeProcedure         = "/" + ControlServiceName + "/SetVolume"
	SetShuffleProcedure        = "/" + ControlServiceName + "/SetShuffle"
	SetLoopProcedure           = "/" + ControlServiceName + "/SetLoop"
	WatchProcedure             = "/" + ControlServiceName + "/Watch"
)

// ControlService implements the control RPCs on top of the session.
type ControlService struct {
	session *session.Manager
}

// NewControlService creates a new ControlService.
func NewControlService(session *session.Manager) *ControlService {
	return &ControlService{session: session}
}

// NewControlServiceHandler builds an HTTP handler serving every control
// procedure. It returns the path prefix to mount the handler on.
func NewControlServiceHandler(svc *ControlService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetStatusProcedure, connect.NewUnaryHandler(GetStatusProcedure, svc.GetStatus, opts...))
	mux.Handle(GetQueueProcedure, connect.NewUnaryHandler(GetQueueProcedure, svc.GetQueue, opts...))
	mux.Handle(GetPersistedQueueProcedure, connect.NewUnaryHandler(GetPersistedQueueProcedure, svc.GetPersistedQueue, opts...))
	mux.Handle(AddProcedure, connect.NewUnaryHandler(AddProcedure, svc.Add, opts...))
	mux.Handle(InsertProcedure, connect.NewUnaryHandler(InsertProcedure, svc.Insert, opts...))
	mux.Handle(ReplaceProcedure, connect.NewUnaryHandler(ReplaceProcedure, svc.Replace, opts...))
	mux.Handle(RemoveProcedure, connect.NewUnaryHandler(RemoveProcedure, svc.Remove, opts...))
	mux.Handle(MoveProcedure, connect.NewUnaryHandler(MoveProcedure, svc.Move, opts...))
	mux.Handle(ClearProcedure, connect.NewUnaryHandler(ClearProcedure, svc.Clear, opts...))
	mux.Handle(PlayIndexProcedure, connect.NewUnaryHandler(PlayIndexProcedure, svc.PlayIndex, opts...))
	mux.Handle(PlayNextProcedure, connect.NewUnaryHandler(PlayNextProcedure, svc.PlayNext, opts...))
	mux.Handle(PlayPreviousProcedure, connect.NewUnaryHandler(PlayPreviousProcedure, svc.PlayPrevious, opts...))
	mux.Handle(SkipNextProcedure, connect.NewUnaryHandler(SkipNextProcedure, svc.SkipNext, opts...))
	mux.Handle(SkipPreviousProcedure, connect.NewUnaryHandler(SkipPreviousProcedure, svc.SkipPrevious, opts...))
	mux.Handle(PauseProcedure, connect.NewUnaryHandler(PauseProcedure, svc.Pause, opts...))
	mux.Handle(ResumeProcedure, connect.NewUnaryHandler(ResumeProcedure, svc.Resume, opts...))
	mux.Handle(TogglePlayProcedure, connect.NewUnaryHandler(TogglePlayProcedure, svc.TogglePlay, opts...))
	mux.Handle(StopProcedure, connect.NewUnaryHandler(StopProcedure, svc.Stop, opts...))
	mux.Handle(SeekProcedure, connect.NewUnaryHandler(SeekProcedure, svc.Seek, opts...))
	mux.Handle(SetVolumeProcedure, connect.NewUnaryHandler(SetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(SetShuffleProcedure, connect.NewUnaryHandler(SetShuffleProcedure, svc.SetShuffle, opts...))
	mux.Handle(SetLoopProcedure, connect.NewUnaryHandler(SetLoopProcedure, svc.SetLoop, opts...))
	mux.Handle(WatchProcedure, connect.NewServerStreamHandler(WatchProcedure, svc.Watch, opts...))

	return "/" + ControlServiceName + "/", mux
}

// GetStatus returns the current player status.
func (s *ControlService) GetStatus(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StatusResponse], error) {
	return connect.NewResponse(s.status()), nil
}

// GetQueue lists the queue in storage order, or as the play-order view.
func (s *ControlService) GetQueue(
	ctx context.Context,
	req *connect.Request[QueueRequest],
) (*connect.Response[QueueResponse], error) {
	pb := s.session.Playback()

	var items []QueueItem
	if req.Msg.PlayOrder {
		items = lo.Map(pb.PlayOrderItems(), func(it queue.PlayOrderItem, _ int) QueueItem {
			return newQueueItem(it)
		})
	} else {
		cur := pb.CurrentIndex()
		items = lo.Map(newTrackInfos(pb.Items()), func(info TrackInfo, i int) QueueItem {
			return QueueItem{
				Index:          i,
				Track:          info,
				IsCurrentTrack: i == cur,
				IsUpcoming:     i > cur,
			}
		})
	}

	return connect.NewResponse(&QueueResponse{
		Items:        items,
		CurrentIndex: pb.CurrentIndex(),
		Upcoming:     newTrackInfos(pb.UpcomingTracks()),
	}), nil
}

// GetPersistedQueue returns the queue as stored by the persistence backend,
// after pending writes have been applied.
func (s *ControlService) GetPersistedQueue(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PersistedQueueResponse], error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	snap, err := s.session.Persisted(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(newPersistedQueueResponse(snap)), nil
}

// Add appends files or directories to the queue.
func (s *ControlService) Add(
	ctx context.Context,
	req *connect.Request[AddRequest],
) (*connect.Response[AddResponse], error) {
	if len(req.Msg.Paths) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("paths are required"))
	}
	n, err := s.session.AddPaths(ctx, req.Msg.Paths, req.Msg.PlayImmediately)
	return s.added(n, err)
}

// Insert splices files or directories before an index.
func (s *ControlService) Insert(
	ctx context.Context,
	req *connect.Request[InsertRequest],
) (*connect.Response[AddResponse], error) {
	if len(req.Msg.Paths) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("paths are required"))
	}
	n, err := s.session.InsertPaths(ctx, req.Msg.Index, req.Msg.Paths)
	return s.added(n, err)
}

// Replace replaces the queue and starts playback.
func (s *ControlService) Replace(
	ctx context.Context,
	req *connect.Request[ReplaceRequest],
) (*connect.Response[AddResponse], error) {
	if len(req.Msg.Paths) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("paths are required"))
	}
	n, err := s.session.ReplacePaths(ctx, req.Msg.Paths, req.Msg.StartIndex)
	return s.added(n, err)
}

// Remove deletes one queue entry.
func (s *ControlService) Remove(
	ctx context.Context,
	req *connect.Request[IndexRequest],
) (*connect.Response[ActionResponse], error) {
	return s.action(s.session.Playback().Remove(req.Msg.Index))
}

// Move relocates one queue entry.
func (s *ControlService) Move(
	ctx context.Context,
	req *connect.Request[MoveRequest],
) (*connect.Response[ActionResponse], error) {
	s.session.Playback().Reorder(req.Msg.From, req.Msg.To)
	return s.action(nil)
}

// Clear empties the queue.
func (s *ControlService) Clear(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ActionResponse], error) {
	s.session.Playback().Clear()
	return s.action(nil)
}

// PlayIndex jumps to an entry.
func (s *ControlService) PlayIndex(
	ctx context.Context,
	req *connect.Request[IndexRequest],
) (*connect.Response[ActionResponse], error) {
	return s.action(s.session.Playback().PlayIndex(req.Msg.Index))
}

// PlayNext advances as if the current track ended.
func (s *ControlService) PlayNext(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ActionResponse], error) {
	return s.action(s.session.Playback().PlayNext())
}

// PlayPrevious goes back, or restarts the current track.
func (s *ControlService) PlayPrevious(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ActionResponse], error) {
	return s.action(s.session.Playback().PlayPrevious())
}

// SkipNext skips forward, escaping a single-track repeat.
func (s *ControlService) SkipNext(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ActionResponse], error) {
	return s.action(s.session.Playback().SkipNext())
}

// SkipPrevious skips back, escaping a single-track repeat.
func (s *ControlService) SkipPrevious(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ActionResponse], error) {
	return s.action(s.session.Playback().SkipPrevious())
}

// Pause pauses playback.
func (s *ControlService) Pause(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ActionResponse], error) {
	return s.action(s.session.Playback().Pause())
}

// Resume resumes playback.
func (s *ControlService) Resume(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ActionResponse], error) {
	return s.action(s.session.Playback().Resume())
}

// TogglePlay switches between playing and paused, starting playback when stopped.
func (s *ControlService) TogglePlay(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ActionResponse], error) {
	return s.action(s.session.Playback().TogglePlay())
}

// Stop stops playback.
func (s *ControlService) Stop(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ActionResponse], error) {
	s.session.Playback().Stop()
	return s.action(nil)
}

// Seek moves within the current track.
func (s *ControlService) Seek(
	ctx context.Context,
	req *connect.Request[SeekRequest],
) (*connect.Response[ActionResponse], error) {
	return s.action(s.session.Playback().Seek(time.Duration(req.Msg.PositionMs) * time.Millisecond))
}

// SetVolume sets the output volume.
func (s *ControlService) SetVolume(
	ctx context.Context,
	req *connect.Request[VolumeRequest],
) (*connect.Response[ActionResponse], error) {
	return s.action(s.session.Playback().SetVolume(req.Msg.Volume))
}

// SetShuffle sets or toggles shuffle.
func (s *ControlService) SetShuffle(
	ctx context.Context,
	req *connect.Request[ShuffleRequest],
) (*connect.Response[ActionResponse], error) {
	if req.Msg.On == nil {
		s.session.Playback().ToggleShuffle()
	} else {
		s.session.Playback().SetShuffle(*req.Msg.On)
	}
	return s.action(nil)
}

// SetLoop sets or cycles the loop mode.
func (s *ControlService) SetLoop(
	ctx context.Context,
	req *connect.Request[LoopRequest],
) (*connect.Response[ActionResponse], error) {
	if req.Msg.Mode == "" {
		s.session.Playback().CycleLoop()
		return s.action(nil)
	}

	mode, ok := playmode.Lookup(req.Msg.Mode)
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.Newf("unknown loop mode %q", req.Msg.Mode))
	}
	s.session.Playback().SetLoop(mode)
	return s.action(nil)
}

// Watch streams the current state, then every playback event until the
// client goes away or the session closes.
func (s *ControlService) Watch(
	ctx context.Context,
	req *connect.Request[Empty],
	stream *connect.ServerStream[Notification],
) error {
	notifManager := s.session.GetNotificationManager()

	// Broadcasts wait on the adapter lock until the initial state is out.
	adapter := &notificationStreamAdapter{stream: stream}
	adapter.mu.Lock()
	subscriptionID := notifManager.Subscribe(adapter)
	defer notifManager.Unsubscribe(subscriptionID)

	err := adapter.stream.Send(s.session.InitialNotification())
	adapter.mu.Unlock()
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}
	return nil
}

func (s *ControlService) status() *StatusResponse {
	return newStatusResponse(s.session.GetStatus())
}

func (s *ControlService) action(err error) (*connect.Response[ActionResponse], error) {
	resp := &ActionResponse{Success: err == nil, Status: s.status()}
	if err != nil {
		if !errors.Is(err, playback.ErrAudioUnavailable) {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		resp.Message = err.Error()
	}
	return connect.NewResponse(resp), nil
}

func (s *ControlService) added(n int, err error) (*connect.Response[AddResponse], error) {
	if errors.Is(err, session.ErrNoTracks) {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	action, err := s.action(err)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&AddResponse{
		Added:   n,
		Success: action.Msg.Success,
		Message: action.Msg.Message,
		Status:  action.Msg.Status,
	}), nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends are serialized because a timed-out broadcast may still be writing.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[Notification]
}

func (a *notificationStreamAdapter) Send(n *Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(n)
}
