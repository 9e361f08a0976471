package brackets

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/openliga/tournament-engine/models"
)

var (
	ErrNoTeams              = errors.New("no teams registered for the tournament")
	ErrUnassignedTeams      = errors.New("could not assign every team to a group")
	ErrTooManyGroups        = errors.New("team count requires more than the supported number of groups")
	ErrInvalidGroupSettings = errors.New("invalid group stage settings")
)

// groupLabels is the fixed alphabet of group names. Stages needing more
// than len(groupLabels) groups are rejected.
var groupLabels = [...]string{"A", "B", "C", "D", "E", "F", "G", "H"}

// Group is one named group with its teams in assignment order.
type Group struct {
	Name  string        `json:"name"`
	Teams []models.Team `json:"teams"`
}

// Grouping is the result of partitioning a tournament's roster into groups.
// Unassigned is always empty with the current algorithm, but callers must
// treat a non-empty list as a hard error.
type Grouping struct {
	Groups     []Group       `json:"groups"`
	Unassigned []models.Team `json:"unassigned"`
}

// GroupStageGenerator partitions teams into groups and produces round-robin
// fixtures with matchday assignment. The random source is injectable so
// placements are reproducible in tests; pass nil for a time-seeded source.
type GroupStageGenerator struct {
	rnd *rand.Rand
}

func NewGroupStageGenerator(rnd *rand.Rand) *GroupStageGenerator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &GroupStageGenerator{rnd: rnd}
}

// GenerateGroups shuffles the roster and distributes it round-robin across
// ceil(len(teams)/teamsPerGroup) groups, so group sizes differ by at most
// one. Group order and within-group order are deterministic given the
// shuffle result.
func (g *GroupStageGenerator) GenerateGroups(tournament *models.Tournament, teams []models.Team) (*Grouping, error) {
	if len(teams) == 0 {
		return nil, ErrNoTeams
	}
	settings := tournament.GroupStageSettings
	if settings == nil || settings.TeamsPerGroup < 2 {
		return nil, fmt.Errorf("%w: teams per group must be at least 2", ErrInvalidGroupSettings)
	}

	numGroups := (len(teams) + settings.TeamsPerGroup - 1) / settings.TeamsPerGroup
	if numGroups > len(groupLabels) {
		return nil, fmt.Errorf("%w: %d teams with %d per group needs %d groups (max %d)",
			ErrTooManyGroups, len(teams), settings.TeamsPerGroup, numGroups, len(groupLabels))
	}

	shuffled := make([]models.Team, len(teams))
	copy(shuffled, teams)
	g.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	groups := make([]Group, numGroups)
	for i := range groups {
		groups[i] = Group{Name: groupLabels[i]}
	}
	for i, team := range shuffled {
		idx := i % numGroups
		groups[idx].Teams = append(groups[idx].Teams, team)
	}

	return &Grouping{Groups: groups, Unassigned: []models.Team{}}, nil
}

// GenerateGroupStageMatches emits one fixture per unordered pair of teams in
// each group, doubled with reversed fixtures when the settings ask for more
// than one match per team pairing. Matchdays are assigned greedily: fixtures
// are considered in generation order and placed on the first matchday where
// neither team already plays, which guarantees at most one match per team
// per matchday. Feasible but not optimal; ties in scan order follow fixture
// generation order.
func (g *GroupStageGenerator) GenerateGroupStageMatches(tournament *models.Tournament, grouping *Grouping) ([]*models.Match, error) {
	if grouping == nil || len(grouping.Groups) == 0 {
		return nil, ErrNoTeams
	}
	if len(grouping.Unassigned) > 0 {
		return nil, fmt.Errorf("%w: %d teams left over", ErrUnassignedTeams, len(grouping.Unassigned))
	}

	legs := 1
	if tournament.GroupStageSettings != nil && tournament.GroupStageSettings.MatchesPerTeamInGroup > 1 {
		legs = 2
	}

	all := make([]*models.Match, 0)
	for _, group := range grouping.Groups {
		fixtures := buildGroupFixtures(tournament.ID, group, legs)
		assignMatchdays(fixtures)
		all = append(all, fixtures...)
	}
	return all, nil
}

func buildGroupFixtures(tournamentID int, group Group, legs int) []*models.Match {
	name := group.Name
	fixtures := make([]*models.Match, 0, len(group.Teams)*(len(group.Teams)-1)/2*legs)

	newFixture := func(team1, team2 models.Team) *models.Match {
		t1, t2 := team1.ID, team2.ID
		g := name
		return &models.Match{
			TournamentID: tournamentID,
			Group:        &g,
			Round:        models.RoundGroup,
			Team1ID:      &t1,
			Team2ID:      &t2,
			Status:       models.MatchScheduled,
		}
	}

	for i := 0; i < len(group.Teams); i++ {
		for j := i + 1; j < len(group.Teams); j++ {
			fixtures = append(fixtures, newFixture(group.Teams[i], group.Teams[j]))
		}
	}
	if legs == 2 {
		for i := 0; i < len(group.Teams); i++ {
			for j := i + 1; j < len(group.Teams); j++ {
				fixtures = append(fixtures, newFixture(group.Teams[j], group.Teams[i]))
			}
		}
	}
	return fixtures
}

// assignMatchdays places each fixture on the first matchday where both of
// its teams are still free, tracked with a per-team busy set. Days grow as
// needed, so odd-sized groups never leave a fixture without a matchday.
func assignMatchdays(fixtures []*models.Match) {
	busy := make(map[int]map[int]bool) // teamID -> set of occupied matchdays
	for _, fixture := range fixtures {
		day := 1
		for busy[*fixture.Team1ID][day] || busy[*fixture.Team2ID][day] {
			day++
		}
		d := day
		fixture.Matchday = &d
		for _, teamID := range []int{*fixture.Team1ID, *fixture.Team2ID} {
			if busy[teamID] == nil {
				busy[teamID] = make(map[int]bool)
			}
			busy[teamID][day] = true
		}
	}
}
