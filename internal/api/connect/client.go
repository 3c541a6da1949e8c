package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// ControlClient is a client for the control service.
type ControlClient struct {
	getStatus         *connect.Client[Empty, StatusResponse]
	getQueue          *connect.Client[QueueRequest, QueueResponse]
	getPersistedQueue *connect.Client[Empty, PersistedQueueResponse]
	add               *connect.Client[AddRequest, AddResponse]
	insert            *connect.Client[InsertRequest, AddResponse]
	replace           *connect.Client[ReplaceRequest, AddResponse]
	remove            *connect.Client[IndexRequest, ActionResponse]
	move              *connect.Client[MoveRequest, ActionResponse]
	clear             *connect.Client[Empty, ActionResponse]
	playIndex         *connect.Client[IndexRequest, ActionResponse]
	playNext          *connect.Client[Empty, ActionResponse]
	playPrevious      *connect.Client[Empty, ActionResponse]
	skipNext          *connect.Client[Empty, ActionResponse]
	skipPrevious      *connect.Client[Empty, ActionResponse]
	pause             *connect.Client[Empty, ActionResponse]
	resume            *connect.Client[Empty, ActionResponse]
	togglePlay        *connect.Client[Empty, ActionResponse]
	stop              *connect.Client[Empty, ActionResponse]
	seek              *connect.Client[SeekRequest, ActionResponse]
	setVolume         *connect.Client[VolumeRequest, ActionResponse]
	setShuffle        *connect.Client[ShuffleRequest, ActionResponse]
	setLoop           *connect.Client[LoopRequest, ActionResponse]
	watch             *connect.Client[Empty, Notification]
}

// NewControlClient creates a client for the control service at baseURL.
func NewControlClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ControlClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &ControlClient{
		getStatus:         connect.NewClient[Empty, StatusResponse](httpClient, baseURL+GetStatusProcedure, opts...),
		getQueue:          connect.NewClient[QueueRequest, QueueResponse](httpClient, baseURL+GetQueueProcedure, opts...),
		getPersistedQueue: connect.NewClient[Empty, PersistedQueueResponse](httpClient, baseURL+GetPersistedQueueProcedure, opts...),
		add:               connect.NewClient[AddRequest, AddResponse](httpClient, baseURL+AddProcedure, opts...),
		insert:            connect.NewClient[InsertRequest, AddResponse](httpClient, baseURL+InsertProcedure, opts...),
		replace:           connect.NewClient[ReplaceRequest, AddResponse](httpClient, baseURL+ReplaceProcedure, opts...),
		remove:            connect.NewClient[IndexRequest, ActionResponse](httpClient, baseURL+RemoveProcedure, opts...),
		move:              connect.NewClient[MoveRequest, ActionResponse](httpClient, baseURL+MoveProcedure, opts...),
		clear:             connect.NewClient[Empty, ActionResponse](httpClient, baseURL+ClearProcedure, opts...),
		playIndex:         connect.NewClient[IndexRequest, ActionResponse](httpClient, baseURL+PlayIndexProcedure, opts...),
		playNext:          connect.NewClient[Empty, ActionResponse](httpClient, baseURL+PlayNextProcedure, opts...),
		playPrevious:      connect.NewClient[Empty, ActionResponse](httpClient, baseURL+PlayPreviousProcedure, opts...),
		skipNext:          connect.NewClient[Empty, ActionResponse](httpClient, baseURL+SkipNextProcedure, opts...),
		skipPrevious:      connect.NewClient[Empty, ActionResponse](httpClient, baseURL+SkipPreviousProcedure, opts...),
		pause:             connect.NewClient[Empty, ActionResponse](httpClient, baseURL+PauseProcedure, opts...),
		resume:            connect.NewClient[Empty, ActionResponse](httpClient, baseURL+ResumeProcedure, opts...),
		togglePlay:        connect.NewClient[Empty, ActionResponse](httpClient, baseURL+TogglePlayProcedure, opts...),
		stop:              connect.NewClient[Empty, ActionResponse](httpClient, baseURL+StopProcedure, opts...),
		seek:              connect.NewClient[SeekRequest, ActionResponse](httpClient, baseURL+SeekProcedure, opts...),
		setVolume:         connect.NewClient[VolumeRequest, ActionResponse](httpClient, baseURL+SetVolumeProcedure, opts...),
		setShuffle:        connect.NewClient[ShuffleRequest, ActionResponse](httpClient, baseURL+SetShuffleProcedure, opts...),
		setLoop:           connect.NewClient[LoopRequest, ActionResponse](httpClient, baseURL+SetLoopProcedure, opts...),
		watch:             connect.NewClient[Empty, Notification](httpClient, baseURL+WatchProcedure, opts...),
	}
}

// GetStatus calls deck.v1.ControlService.GetStatus.
func (c *ControlClient) GetStatus(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

// GetQueue calls deck.v1.ControlService.GetQueue.
func (c *ControlClient) GetQueue(ctx context.Context, req *connect.Request[QueueRequest]) (*connect.Response[QueueResponse], error) {
	return c.getQueue.CallUnary(ctx, req)
}

// GetPersistedQueue calls deck.v1.ControlService.GetPersistedQueue.
func (c *ControlClient) GetPersistedQueue(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[PersistedQueueResponse], error) {
	return c.getPersistedQueue.CallUnary(ctx, req)
}

// Add calls deck.v1.ControlService.Add.
func (c *ControlClient) Add(ctx context.Context, req *connect.Request[AddRequest]) (*connect.Response[AddResponse], error) {
	return c.add.CallUnary(ctx, req)
}

// Insert calls deck.v1.ControlService.Insert.
func (c *ControlClient) Insert(ctx context.Context, req *connect.Request[InsertRequest]) (*connect.Response[AddResponse], error) {
	return c.insert.CallUnary(ctx, req)
}

// Replace calls deck.v1.ControlService.Replace.
func (c *ControlClient) Replace(ctx context.Context, req *connect.Request[ReplaceRequest]) (*connect.Response[AddResponse], error) {
	return c.replace.CallUnary(ctx, req)
}

// Remove calls deck.v1.ControlService.Remove.
func (c *ControlClient) Remove(ctx context.Context, req *connect.Request[IndexRequest]) (*connect.Response[ActionResponse], error) {
	return c.remove.CallUnary(ctx, req)
}

// Move calls deck.v1.ControlService.Move.
func (c *ControlClient) Move(ctx context.Context, req *connect.Request[MoveRequest]) (*connect.Response[ActionResponse], error) {
	return c.move.CallUnary(ctx, req)
}

// Clear calls deck.v1.ControlService.Clear.
func (c *ControlClient) Clear(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ActionResponse], error) {
	return c.clear.CallUnary(ctx, req)
}

// PlayIndex calls deck.v1.ControlService.PlayIndex.
func (c *ControlClient) PlayIndex(ctx context.Context, req *connect.Request[IndexRequest]) (*connect.Response[ActionResponse], error) {
	return c.playIndex.CallUnary(ctx, req)
}

// PlayNext calls deck.v1.ControlService.PlayNext.
func (c *ControlClient) PlayNext(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ActionResponse], error) {
	return c.playNext.CallUnary(ctx, req)
}

// PlayPrevious calls deck.v1.ControlService.PlayPrevious.
func (c *ControlClient) PlayPrevious(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ActionResponse], error) {
	return c.playPrevious.CallUnary(ctx, req)
}

// SkipNext calls deck.v1.ControlService.SkipNext.
func (c *ControlClient) SkipNext(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ActionResponse], error) {
	return c.skipNext.CallUnary(ctx, req)
}

// SkipPrevious calls deck.v1.ControlService.SkipPrevious.
func (c *ControlClient) SkipPrevious(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ActionResponse], error) {
	return c.skipPrevious.CallUnary(ctx, req)
}

// Pause calls deck.v1.ControlService.Pause.
func (c *ControlClient) Pause(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ActionResponse], error) {
	return c.pause.CallUnary(ctx, req)
}

// Resume calls deck.v1.ControlService.Resume.
func (c *ControlClient) Resume(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ActionResponse], error) {
	return c.resume.CallUnary(ctx, req)
}

// TogglePlay calls deck.v1.ControlService.TogglePlay.
func (c *ControlClient) TogglePlay(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ActionResponse], error) {
	return c.togglePlay.CallUnary(ctx, req)
}

// Stop calls deck.v1.ControlService.Stop.
func (c *ControlClient) Stop(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ActionResponse], error) {
	return c.stop.CallUnary(ctx, req)
}

// Seek calls deck.v1.ControlService.Seek.
func (c *ControlClient) Seek(ctx context.Context, req *connect.Request[SeekRequest]) (*connect.Response[ActionResponse], error) {
	return c.seek.CallUnary(ctx, req)
}

// SetVolume calls deck.v1.ControlService.SetVolume.
func (c *ControlClient) SetVolume(ctx context.Context, req *connect.Request[VolumeRequest]) (*connect.Response[ActionResponse], error) {
	return c.setVolume.CallUnary(ctx, req)
}

// SetShuffle calls deck.v1.ControlService.SetShuffle.
func (c *ControlClient) SetShuffle(ctx context.Context, req *connect.Request[ShuffleRequest]) (*connect.Response[ActionResponse], error) {
	return c.setShuffle.CallUnary(ctx, req)
}

// SetLoop calls deck.v1.ControlService.SetLoop.
func (c *ControlClient) SetLoop(ctx context.Context, req *connect.Request[LoopRequest]) (*connect.Response[ActionResponse], error) {
	return c.setLoop.CallUnary(ctx, req)
}

// Watch calls deck.v1.ControlService.Watch.
func (c *ControlClient) Watch(ctx context.Context, req *connect.Request[Empty]) (*connect.ServerStreamForClient[Notification], error) {
	return c.watch.CallServerStream(ctx, req)
}
