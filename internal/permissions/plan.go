// Package permissions converges channel permission overwrites to the state
// implied by each channel's class and the guild's roles.
package permissions

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"motive-discord-bot/internal/channels"
	"motive-discord-bot/internal/gamedata"
	"motive-discord-bot/internal/guild"
)

// Edit is one overwrite change on one channel.
type Edit struct {
	ChannelID   string
	ChannelName string
	Class       channels.Class
	RoleID      string
	RoleName    string
	Permission  guild.Permission
}

func (e Edit) String() string {
	return fmt.Sprintf("#%s @%s %s", e.ChannelName, e.RoleName, e.Permission)
}

// Roster indexes the guild roles the rules refer to.
type Roster struct {
	Everyone  *discordgo.Role
	Spectator *discordgo.Role
	// Characters holds every role named after a character, with or without
	// members.
	Characters []*discordgo.Role

	byName map[string][]*discordgo.Role
}

// NewRoster indexes roles. The @everyone role is the one sharing the guild's
// id; the spectator role is matched by exact name.
func NewRoster(guildID string, roles []*discordgo.Role, spectatorName string) Roster {
	r := Roster{byName: map[string][]*discordgo.Role{}}
	for _, role := range roles {
		if role.ID == guildID {
			r.Everyone = role
			continue
		}
		r.byName[role.Name] = append(r.byName[role.Name], role)
		if spectatorName != "" && role.Name == spectatorName && r.Spectator == nil {
			r.Spectator = role
		}
		if gamedata.IsCharacter(role.Name) {
			r.Characters = append(r.Characters, role)
		}
	}
	if r.Everyone == nil {
		r.Everyone = &discordgo.Role{ID: guildID, Name: "@everyone"}
	}
	return r
}

// Named returns every role with exactly name.
func (r Roster) Named(name string) []*discordgo.Role {
	return r.byName[name]
}

// Plan is the edits for one channel and the roles that were expected but
// missing.
type Plan struct {
	Edits   []Edit
	Missing []string
}

// Planner derives plans from channel names.
type Planner struct {
	classifier *channels.Classifier
}

// NewPlanner returns a planner using classifier.
func NewPlanner(classifier *channels.Classifier) *Planner {
	return &Planner{classifier: classifier}
}

// Plan computes the edits for ch. It reads nothing but its arguments, so
// the same inputs always give the same plan.
func (p *Planner) Plan(ch *discordgo.Channel, roster Roster) Plan {
	class := p.classifier.Classify(ch.Name)
	b := planBuilder{ch: ch, class: class}

	switch class {
	case channels.Clue:
		b.add(roster.Everyone, guild.Permission{View: guild.Deny, Send: guild.Deny})
		b.addOptional("spectator", roster.Spectator, guild.Permission{View: guild.Allow})
		// Sending stays locked; game progress opens it.
		owner := p.classifier.Owner(ch.Name)
		b.addNamed(owner, roster.Named(owner), guild.Permission{View: guild.Allow})

	case channels.Shared:
		b.add(roster.Everyone, guild.Permission{Send: guild.Deny})
		for _, role := range roster.Characters {
			b.add(role, guild.Permission{Send: guild.Allow})
		}

	case channels.PrivatePair:
		b.add(roster.Everyone, guild.Permission{View: guild.Deny, Send: guild.Inherit})
		b.addOptional("spectator", roster.Spectator, guild.Permission{View: guild.Allow, Send: guild.Deny})
		if a, c, ok := p.classifier.Pair(ch.Name); ok {
			b.addNamed(a, roster.Named(a), guild.Permission{View: guild.Allow})
			b.addNamed(c, roster.Named(c), guild.Permission{View: guild.Allow})
		}
	}
	return b.plan
}

type planBuilder struct {
	ch    *discordgo.Channel
	class channels.Class
	plan  Plan
}

func (b *planBuilder) add(role *discordgo.Role, perm guild.Permission) {
	b.plan.Edits = append(b.plan.Edits, Edit{
		ChannelID:   b.ch.ID,
		ChannelName: b.ch.Name,
		Class:       b.class,
		RoleID:      role.ID,
		RoleName:    role.Name,
		Permission:  perm,
	})
}

func (b *planBuilder) addOptional(name string, role *discordgo.Role, perm guild.Permission) {
	if role == nil {
		b.plan.Missing = append(b.plan.Missing, name)
		return
	}
	b.add(role, perm)
}

func (b *planBuilder) addNamed(name string, roles []*discordgo.Role, perm guild.Permission) {
	if len(roles) == 0 {
		b.plan.Missing = append(b.plan.Missing, name)
		return
	}
	for _, role := range roles {
		b.add(role, perm)
	}
}
