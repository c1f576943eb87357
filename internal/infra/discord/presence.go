package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/osa030/noisebox/internal/app/playback"
)

// Presence resolves users' voice channels from the gateway state cache.
type Presence struct {
	state *discordgo.State
}

// NewPresence creates a presence resolver backed by state.
func NewPresence(state *discordgo.State) *Presence {
	return &Presence{state: state}
}

// UserVoiceChannel returns the voice channel the user is connected to in the guild.
func (p *Presence) UserVoiceChannel(guildID, userID string) (playback.Channel, bool) {
	vs, err := p.state.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return playback.Channel{}, false
	}
	return playback.Channel{GuildID: guildID, ID: vs.ChannelID}, true
}
