package player

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"layeh.com/gopus"

	"github.com/mizube/hibiki/pkg/pipeline"
)

const (
	// 960 samples per channel is one 20ms Opus frame at 48kHz.
	frameSamples = 960
	frameBytes   = frameSamples * pipeline.Channels * 2
	opusBitrate  = 128000

	joinReadyTimeout = 10 * time.Second
	sendTimeout      = 5 * time.Second
)

// DiscordConnector joins Discord voice channels over an open gateway
// session.
type DiscordConnector struct {
	session *discordgo.Session
}

func NewDiscordConnector(session *discordgo.Session) *DiscordConnector {
	return &DiscordConnector{session: session}
}

func (c *DiscordConnector) Join(guildID, channelID string) (Channel, error) {
	vc, err := c.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}

	// The join returns before the UDP handshake finishes; wait for the
	// connection to become ready before handing it out.
	timeout := time.After(joinReadyTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for !vc.Ready {
		select {
		case <-timeout:
			vc.Disconnect()
			return nil, fmt.Errorf("voice connection not ready after %s", joinReadyTimeout)
		case <-ticker.C:
		}
	}
	return &discordChannel{vc: vc}, nil
}

// discordChannel packetizes an already-decoded PCM stream into Opus
// frames for the voice UDP connection. No further decoding happens
// here.
type discordChannel struct {
	vc     *discordgo.VoiceConnection
	paused atomic.Bool
}

func (d *discordChannel) SetPaused(paused bool) {
	d.paused.Store(paused)
}

func (d *discordChannel) Close() error {
	return d.vc.Disconnect()
}

func (d *discordChannel) Stream(ctx context.Context, src io.Reader) error {
	encoder, err := gopus.NewEncoder(pipeline.SampleRate, pipeline.Channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("creating opus encoder: %w", err)
	}
	encoder.SetBitrate(opusBitrate)

	d.vc.Speaking(true)
	defer d.vc.Speaking(false)

	frame := make([]byte, frameBytes)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.paused.Load() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(20 * time.Millisecond):
			}
			continue
		}

		n, err := io.ReadFull(src, frame)
		switch err {
		case nil:
		case io.EOF:
			return nil
		case io.ErrUnexpectedEOF:
			// Pad the trailing partial frame with silence.
			for i := n; i < frameBytes; i++ {
				frame[i] = 0
			}
		default:
			return fmt.Errorf("reading pcm: %w", err)
		}

		opusFrame, encErr := encoder.Encode(bytesToInt16(frame), frameSamples, frameBytes)
		if encErr != nil {
			log.Warn().Err(encErr).Msg("opus encode failed, dropping frame")
			continue
		}

		select {
		case d.vc.OpusSend <- opusFrame:
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sendTimeout):
			return fmt.Errorf("voice send stalled for %s", sendTimeout)
		}

		if err == io.ErrUnexpectedEOF {
			return nil
		}
	}
}

func bytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// FindVoiceChannel returns the voice channel the user currently
// occupies in the guild, or "" if they are not in one.
func FindVoiceChannel(session *discordgo.Session, guildID, userID string) string {
	guild, err := session.State.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}
