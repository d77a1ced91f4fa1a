package commands

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mizube/hibiki/pkg/history"
	"github.com/mizube/hibiki/pkg/player"
	"github.com/mizube/hibiki/pkg/resolver"
)

type stubResolver struct {
	result *resolver.Result
	err    error
}

func (r *stubResolver) Resolve(query string) (*resolver.Result, error) {
	return r.result, r.err
}

type nopStream struct{}

func (nopStream) Output() io.Reader { return strings.NewReader("") }
func (nopStream) Kill()             {}

type stubChannel struct{}

func (stubChannel) Stream(ctx context.Context, src io.Reader) error {
	<-ctx.Done()
	return ctx.Err()
}
func (stubChannel) SetPaused(bool) {}
func (stubChannel) Close() error   { return nil }

type stubConnector struct{}

func (stubConnector) Join(guildID, channelID string) (player.Channel, error) {
	return stubChannel{}, nil
}

func blockingFactory(ctx context.Context, url string, target int64) (player.Stream, error) {
	return nopStream{}, nil
}

func testCommands(t *testing.T, res Resolver) *Commands {
	t.Helper()
	hist, err := history.New(":memory:")
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	players := player.NewRegistry(player.Config{
		Connector: stubConnector{},
		Streams:   blockingFactory,
	})
	t.Cleanup(func() { players.StopAll(time.Second) })

	return New(res, players, hist)
}

// testSession builds a session whose state places the user in a voice
// channel, which is all the handlers consult.
func testSession(t *testing.T, guildID, userID, channelID string) *discordgo.Session {
	t.Helper()
	state := discordgo.NewState()
	guild := &discordgo.Guild{ID: guildID}
	if channelID != "" {
		guild.VoiceStates = []*discordgo.VoiceState{
			{UserID: userID, ChannelID: channelID, GuildID: guildID},
		}
	}
	if err := state.GuildAdd(guild); err != nil {
		t.Fatalf("GuildAdd: %v", err)
	}
	return &discordgo.Session{State: state}
}

func commandInteraction(guildID, userID, name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: guildID,
			Member: &discordgo.Member{
				User: &discordgo.User{ID: userID, Username: "tester"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func queryOption(value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "query",
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func TestPlayRequiresVoiceChannel(t *testing.T) {
	c := testCommands(t, &stubResolver{result: &resolver.Result{Title: "t", URL: "u"}})
	s := testSession(t, "g1", "user", "")

	got := c.Play(s, commandInteraction("g1", "user", "play", queryOption("some song")))
	if !strings.Contains(got, "voice channel") {
		t.Errorf("response = %q, want voice channel prompt", got)
	}
}

func TestPlayNoResults(t *testing.T) {
	c := testCommands(t, &stubResolver{err: resolver.ErrNoResults})
	s := testSession(t, "g1", "user", "vc-1")

	got := c.Play(s, commandInteraction("g1", "user", "play", queryOption("nothing matches")))
	if !strings.Contains(got, "No results") {
		t.Errorf("response = %q, want no-results message", got)
	}
}

func TestPlayResolverFailure(t *testing.T) {
	c := testCommands(t, &stubResolver{err: errors.New("network down")})
	s := testSession(t, "g1", "user", "vc-1")

	got := c.Play(s, commandInteraction("g1", "user", "play", queryOption("some song")))
	if !strings.Contains(got, "Could not resolve") {
		t.Errorf("response = %q, want resolution failure message", got)
	}
}

func TestPlayStartsAndQueues(t *testing.T) {
	c := testCommands(t, &stubResolver{result: &resolver.Result{Title: "Song A", URL: "url-a"}})
	s := testSession(t, "g1", "user", "vc-1")

	got := c.Play(s, commandInteraction("g1", "user", "play", queryOption("song a")))
	if !strings.Contains(got, "Now playing") || !strings.Contains(got, "Song A") {
		t.Errorf("first play response = %q", got)
	}

	// The first song holds the session, so the second lands behind it.
	c.Resolver = &stubResolver{result: &resolver.Result{Title: "Song B", URL: "url-b"}}
	deadline := time.Now().Add(2 * time.Second)
	var second string
	for time.Now().Before(deadline) {
		if _, ok := c.Players.NowPlaying("g1"); ok {
			second = c.Play(s, commandInteraction("g1", "user", "play", queryOption("song b")))
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !strings.Contains(second, "position 1") {
		t.Errorf("second play response = %q, want queued at position 1", second)
	}
}

func TestSkipWithNothingPlaying(t *testing.T) {
	c := testCommands(t, &stubResolver{})
	s := testSession(t, "g1", "user", "vc-1")

	got := c.Skip(s, commandInteraction("g1", "user", "skip"))
	if !strings.Contains(got, "Nothing is playing") {
		t.Errorf("response = %q", got)
	}
}

func TestQueueEmpty(t *testing.T) {
	c := testCommands(t, &stubResolver{})
	s := testSession(t, "g1", "user", "vc-1")

	got := c.Queue(s, commandInteraction("g1", "user", "queue"))
	if !strings.Contains(got, "empty") {
		t.Errorf("response = %q", got)
	}
}

func TestHistoryListShowsRecorded(t *testing.T) {
	c := testCommands(t, &stubResolver{})
	s := testSession(t, "g1", "user", "vc-1")

	if err := c.History.Record("g1", "Old Favorite", "url", "tester"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got := c.HistoryList(s, commandInteraction("g1", "user", "history"))
	if !strings.Contains(got, "Old Favorite") {
		t.Errorf("response = %q, want recorded title", got)
	}
}

func TestHelpNamesEveryCommand(t *testing.T) {
	c := testCommands(t, &stubResolver{})
	s := testSession(t, "g1", "user", "vc-1")

	got := c.Help(s, commandInteraction("g1", "user", "help"))
	for _, def := range Definitions() {
		if def.Name == "nowplaying" || def.Name == "help" {
			continue
		}
		if !strings.Contains(got, def.Name) {
			t.Errorf("help text missing /%s", def.Name)
		}
	}
	if strings.Contains(got, "\u2014") {
		t.Error("help text should separate commands with plain hyphens")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "live"},
		{42 * time.Second, "0:42"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
