// Package main provides the control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/19deck/internal/api/connect"
)

var (
	app    = kingpin.New("deckctl", "19deck control client")
	server = app.Flag("server", "Server address").Default("http://127.0.0.1:7419").String()
	token  = app.Flag("token", "Control token (or set DECK_CONTROL_TOKEN env)").Envar("DECK_CONTROL_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show player status")

	// queue command
	queueCmd       = app.Command("queue", "List the queue").Alias("ls")
	queuePlayOrder = queueCmd.Flag("play-order", "Show what plays from now on").Short('o').Bool()

	// persisted command
	persistedCmd = app.Command("persisted", "List the queue as stored by the persistence backend")

	// add command
	addCmd   = app.Command("add", "Append files, directories or playlists")
	addPlay  = addCmd.Flag("play", "Start playing the first added track").Short('p').Bool()
	addPaths = addCmd.Arg("paths", "Files, directories or playlists").Required().Strings()

	// insert command
	insertCmd   = app.Command("insert", "Insert files or directories before an index")
	insertIndex = insertCmd.Arg("index", "Queue index").Required().Int()
	insertPaths = insertCmd.Arg("paths", "Files, directories or playlists").Required().Strings()

	// replace command
	replaceCmd   = app.Command("replace", "Replace the queue and start playing")
	replaceStart = replaceCmd.Flag("start", "Index to start at").Default("0").Int()
	replacePaths = replaceCmd.Arg("paths", "Files, directories or playlists").Required().Strings()

	// remove command
	removeCmd   = app.Command("remove", "Remove a queue entry").Alias("rm")
	removeIndex = removeCmd.Arg("index", "Queue index").Required().Int()

	// move command
	moveCmd  = app.Command("move", "Move a queue entry").Alias("mv")
	moveFrom = moveCmd.Arg("from", "Current index").Required().Int()
	moveTo   = moveCmd.Arg("to", "Target index").Required().Int()

	// clear command
	clearCmd = app.Command("clear", "Clear the queue")

	// play command
	playCmd   = app.Command("play", "Play an entry, or toggle play/pause without an index")
	playIndex = playCmd.Arg("index", "Queue index").Default("-1").Int()

	pauseCmd  = app.Command("pause", "Pause playback")
	resumeCmd = app.Command("resume", "Resume playback")
	stopCmd   = app.Command("stop", "Stop playback")
	nextCmd   = app.Command("next", "Advance as if the track ended")
	prevCmd   = app.Command("prev", "Previous track, or restart the current one")
	skipCmd   = app.Command("skip", "Skip forward")
	backCmd   = app.Command("back", "Skip back")

	// seek command
	seekCmd      = app.Command("seek", "Seek within the current track")
	seekPosition = seekCmd.Arg("position", "Position, e.g. 1m30s").Required().Duration()

	// volume command
	volumeCmd   = app.Command("volume", "Set the output volume")
	volumeLevel = volumeCmd.Arg("level", "Volume between 0 and 1").Required().Float64()

	// shuffle command
	shuffleCmd  = app.Command("shuffle", "Set or toggle shuffle")
	shuffleMode = shuffleCmd.Arg("mode", "on or off (toggles when omitted)").Enum("on", "off")

	// loop command
	loopCmd  = app.Command("loop", "Set or cycle the loop mode")
	loopMode = loopCmd.Arg("mode", "none, all or one (cycles when omitted)").Enum("none", "all", "one")

	// watch command
	watchCmd = app.Command("watch", "Stream playback events")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewControlClient(http.DefaultClient, *server)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch command {
	case statusCmd.FullCommand():
		status(ctx, client)
	case queueCmd.FullCommand():
		listQueue(ctx, client, *queuePlayOrder)
	case persistedCmd.FullCommand():
		persisted(ctx, client)
	case addCmd.FullCommand():
		printAdded(client.Add(ctx, request(&apiconnect.AddRequest{Paths: absPaths(*addPaths), PlayImmediately: *addPlay})))
	case insertCmd.FullCommand():
		printAdded(client.Insert(ctx, request(&apiconnect.InsertRequest{Index: *insertIndex, Paths: absPaths(*insertPaths)})))
	case replaceCmd.FullCommand():
		printAdded(client.Replace(ctx, request(&apiconnect.ReplaceRequest{Paths: absPaths(*replacePaths), StartIndex: *replaceStart})))
	case removeCmd.FullCommand():
		printAction(client.Remove(ctx, request(&apiconnect.IndexRequest{Index: *removeIndex})))
	case moveCmd.FullCommand():
		printAction(client.Move(ctx, request(&apiconnect.MoveRequest{From: *moveFrom, To: *moveTo})))
	case clearCmd.FullCommand():
		printAction(client.Clear(ctx, request(&apiconnect.Empty{})))
	case playCmd.FullCommand():
		if *playIndex < 0 {
			printAction(client.TogglePlay(ctx, request(&apiconnect.Empty{})))
		} else {
			printAction(client.PlayIndex(ctx, request(&apiconnect.IndexRequest{Index: *playIndex})))
		}
	case pauseCmd.FullCommand():
		printAction(client.Pause(ctx, request(&apiconnect.Empty{})))
	case resumeCmd.FullCommand():
		printAction(client.Resume(ctx, request(&apiconnect.Empty{})))
	case stopCmd.FullCommand():
		printAction(client.Stop(ctx, request(&apiconnect.Empty{})))
	case nextCmd.FullCommand():
		printAction(client.PlayNext(ctx, request(&apiconnect.Empty{})))
	case prevCmd.FullCommand():
		printAction(client.PlayPrevious(ctx, request(&apiconnect.Empty{})))
	case skipCmd.FullCommand():
		printAction(client.SkipNext(ctx, request(&apiconnect.Empty{})))
	case backCmd.FullCommand():
		printAction(client.SkipPrevious(ctx, request(&apiconnect.Empty{})))
	case seekCmd.FullCommand():
		printAction(client.Seek(ctx, request(&apiconnect.SeekRequest{PositionMs: seekPosition.Milliseconds()})))
	case volumeCmd.FullCommand():
		printAction(client.SetVolume(ctx, request(&apiconnect.VolumeRequest{Volume: *volumeLevel})))
	case shuffleCmd.FullCommand():
		req := &apiconnect.ShuffleRequest{}
		if *shuffleMode != "" {
			on := *shuffleMode == "on"
			req.On = &on
		}
		printAction(client.SetShuffle(ctx, request(req)))
	case loopCmd.FullCommand():
		printAction(client.SetLoop(ctx, request(&apiconnect.LoopRequest{Mode: *loopMode})))
	case watchCmd.FullCommand():
		cancel()
		watch(context.Background(), client)
	}
}

// request wraps msg and attaches the control token.
func request[T any](msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if *token != "" {
		req.Header().Set(apiconnect.TokenHeader, *token)
	}
	return req
}

// absPaths resolves paths against the CLI's working directory, since the
// daemon may run elsewhere.
func absPaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		out[i] = abs
	}
	return out
}

func status(ctx context.Context, client *apiconnect.ControlClient) {
	resp, err := client.GetStatus(ctx, request(&apiconnect.Empty{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\n=== PLAYER STATUS ===")
	printStatus(resp.Msg)
	fmt.Println()
}

func printStatus(s *apiconnect.StatusResponse) {
	fmt.Printf("State: %s\n", formatState(s.State))
	if s.Track != nil {
		fmt.Println("\nCurrently Playing:")
		fmt.Printf("  Index: %d of %d\n", s.CurrentIndex, s.Length)
		printTrack(s.Track)
		fmt.Printf("  Position: %s / %s\n", formatMs(s.PositionMs), formatMs(s.DurationMs))
	} else {
		fmt.Printf("\nNo active track (queue length %d)\n", s.Length)
	}

	fmt.Println("\nModes:")
	fmt.Printf("  Shuffle: %v\n", s.Shuffle)
	fmt.Printf("  Loop: %s (%s)\n", s.Loop, s.RepeatPhase)
	fmt.Printf("  Volume: %.0f%%\n", s.Volume*100)
	fmt.Printf("  Has Next: %v  Has Previous: %v\n", s.HasNext, s.HasPrevious)

	fmt.Println("\nPersistence:")
	fmt.Printf("  Healthy: %v (pending %d, applied %d, failed %d)\n", s.Sync.Healthy, s.Sync.Pending, s.Sync.Applied, s.Sync.Failed)
	if s.Sync.LastError != "" {
		fmt.Printf("  Last Error: %s at %s\n", s.Sync.LastError, s.Sync.LastErrorAt)
	}
	fmt.Printf("\nWatchers: %d\n", s.Subscribers)
	if s.StartedAt != "" {
		fmt.Printf("Started At: %s\n", s.StartedAt)
	}
}

func printTrack(t *apiconnect.TrackInfo) {
	fmt.Printf("  Title: %s\n", t.Title)
	if t.Artist != "" {
		fmt.Printf("  Artist: %s\n", t.Artist)
	}
	if t.Album != "" {
		fmt.Printf("  Album: %s\n", t.Album)
	}
	fmt.Printf("  File: %s\n", t.FilePath)
	fmt.Printf("  Track ID: %s\n", t.ID)
}

func listQueue(ctx context.Context, client *apiconnect.ControlClient, playOrder bool) {
	resp, err := client.GetQueue(ctx, request(&apiconnect.QueueRequest{PlayOrder: playOrder}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Queue (%d):\n", len(resp.Msg.Items))
	for _, it := range resp.Msg.Items {
		marker := "  "
		if it.IsCurrentTrack {
			marker = "> "
		}
		fmt.Printf("%s%3d  %-40s %s\n", marker, it.Index, displayName(it.Track), formatMs(it.Track.DurationMs))
	}
}

func persisted(ctx context.Context, client *apiconnect.ControlClient) {
	resp, err := client.GetPersistedQueue(ctx, request(&apiconnect.Empty{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	m := resp.Msg
	fmt.Printf("Persisted queue (%d, current %d, shuffle %v, loop %s):\n", len(m.Items), m.CurrentIndex, m.Shuffle, m.Loop)
	for i, t := range m.Items {
		fmt.Printf("  %3d  %s\n", i, displayName(t))
	}
}

func printAdded(resp *connect.Response[apiconnect.AddResponse], err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Queued %d tracks\n", resp.Msg.Added)
	if !resp.Msg.Success {
		fmt.Printf("Failed: %s\n", resp.Msg.Message)
	}
}

func printAction(resp *connect.Response[apiconnect.ActionResponse], err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if !resp.Msg.Success {
		fmt.Printf("Failed: %s\n", resp.Msg.Message)
	}
	s := resp.Msg.Status
	if s.Track != nil {
		fmt.Printf("%s [%d/%d] %s  shuffle=%v loop=%s\n",
			formatState(s.State), s.CurrentIndex+1, s.Length, displayName(*s.Track), s.Shuffle, s.Loop)
	} else {
		fmt.Printf("%s  queue=%d shuffle=%v loop=%s\n", formatState(s.State), s.Length, s.Shuffle, s.Loop)
	}
}

func watch(ctx context.Context, client *apiconnect.ControlClient) {
	stream, err := client.Watch(ctx, request(&apiconnect.Empty{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Watching playback events. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nStopped watching")
		os.Exit(0)
	}()

	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printNotification(n *apiconnect.Notification) {
	if n.Type == "progress" {
		fmt.Printf("\r[%d] %s / %s", n.SequenceNo, formatMs(n.PositionMs), formatMs(n.DurationMs))
		return
	}

	fmt.Printf("\n[Sequence: %d] === %s ===\n", n.SequenceNo, n.Type)
	fmt.Printf("  State: %s  Index: %d of %d  Shuffle: %v  Loop: %s\n",
		formatState(n.State), n.Index, n.Length, n.Shuffle, n.Loop)
	if n.Track != nil {
		printTrack(n.Track)
	}
	if n.Error != "" {
		fmt.Printf("  Error: %s\n", n.Error)
	}
}

func displayName(t apiconnect.TrackInfo) string {
	switch {
	case t.Title != "" && t.Artist != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	default:
		return filepath.Base(t.FilePath)
	}
}

func formatMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func formatState(state string) string {
	switch state {
	case "playing":
		return "▶️  Playing"
	case "paused":
		return "⏸  Paused"
	case "stopped":
		return "⏹  Stopped"
	default:
		return "❓ Unknown"
	}
}
