// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/noisebox/internal/api/connect"
	"github.com/osa030/noisebox/internal/app/notification"
)

var (
	app    = kingpin.New("noisebox-admincli", "noisebox admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show playback queues and loaded sounds")

	// advance command
	advanceCmd = app.Command("advance", "Re-evaluate the head of every playback queue")

	// watch command
	watchCmd = app.Command("watch", "Stream playback events until interrupted")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	client := apiconnect.NewAdminClient(http.DefaultClient, strings.TrimRight(*server, "/"), *token)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch command {
	case statusCmd.FullCommand():
		status(ctx, client)
	case advanceCmd.FullCommand():
		advance(ctx, client)
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

func status(ctx context.Context, client *apiconnect.AdminClient) {
	s, err := client.GetStatus(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n=== PLAYBACK QUEUES ===")
	if len(s.Queues) == 0 {
		fmt.Println("No pending requests")
	}
	for _, q := range s.Queues {
		fmt.Printf("\nChannel %s/%s (%d pending):\n", q.GuildID, q.ChannelID, len(q.Items))
		for i, item := range q.Items {
			fmt.Printf("  %d. %-12s %-10s queued %s  (%s)\n",
				i+1, item.SoundID, item.Status, humanize.Time(item.EnqueuedAt), item.RequestID)
		}
	}

	fmt.Printf("\n=== SOUNDS (%d) ===\n", len(s.Sounds))
	for _, snd := range s.Sounds {
		fmt.Printf("  %-12s %8v %9s  [keywords: %s]\n",
			snd.ID,
			time.Duration(snd.DurationMS)*time.Millisecond,
			humanize.Bytes(snd.SizeBytes),
			strings.Join(snd.Keywords, ", "))
	}

	fmt.Printf("\nEvent subscribers: %d\n\n", s.Subscribers)
}

func advance(ctx context.Context, client *apiconnect.AdminClient) {
	resp, err := client.AdvanceAll(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Advanced %d queue(s)\n", resp.Queues)
}

func watch(ctx context.Context, client *apiconnect.AdminClient) {
	stream, err := client.WatchEvents(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	fmt.Println("Watching playback events (Ctrl+C to stop)...")
	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func printNotification(n *notification.Notification) {
	line := fmt.Sprintf("#%-5d %s  %-18s %s/%s",
		n.SequenceNo, n.Time.Local().Format(time.TimeOnly), n.Type, n.GuildID, n.ChannelID)
	if n.SoundID != "" {
		line += fmt.Sprintf("  sound=%s", n.SoundID)
	}
	if n.Status != "" {
		line += fmt.Sprintf("  status=%s", n.Status)
	}
	if n.Error != "" {
		line += fmt.Sprintf("  error=%q", n.Error)
	}
	fmt.Println(line)
	for _, q := range n.Queues {
		fmt.Printf("       %s/%s  pending=%d  head=%s (%s)\n",
			q.GuildID, q.ChannelID, q.Pending, q.HeadSound, q.HeadStatus)
	}
}
