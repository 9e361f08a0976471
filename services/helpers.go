package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openliga/tournament-engine/models"
	"github.com/openliga/tournament-engine/storage"
)

func parseMatchTime(value string) (*time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("match time must be RFC3339: %w", err)
	}
	return &parsed, nil
}

// partitionByGroup splits group-stage matches by their group label. Matches
// without a label are skipped; generated group fixtures always carry one.
func partitionByGroup(matches []*models.Match) map[string][]models.Match {
	byGroup := make(map[string][]models.Match)
	for _, match := range matches {
		if match.Group == nil {
			continue
		}
		byGroup[*match.Group] = append(byGroup[*match.Group], *match)
	}
	return byGroup
}

func sortedGroupLabels(byGroup map[string][]models.Match) []string {
	labels := make([]string, 0, len(byGroup))
	for label := range byGroup {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func populateTournamentLogoURL(tournament *models.Tournament, uploader storage.FileUploader) {
	if tournament != nil && tournament.LogoKey != nil && *tournament.LogoKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*tournament.LogoKey)
		if url != "" {
			tournament.LogoURL = &url
		}
	}
}

func populateTeamLogoURL(team *models.Team, uploader storage.FileUploader) {
	if team != nil && team.LogoKey != nil && *team.LogoKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*team.LogoKey)
		if url != "" {
			team.LogoURL = &url
		}
	}
}

func extensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("unsupported image content type: %s", contentType)
	}
}
