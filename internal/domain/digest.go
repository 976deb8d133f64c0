package domain

import (
	"sort"
	"time"
)

// DateLayout is the grouping key format. It sorts lexicographically in
// the same order as chronologically, which BuildDigest relies on.
const DateLayout = "2006-01-02"

type Digest struct {
	Total int
	Days  []DayGroup
}

type DayGroup struct {
	Date  string
	Repos []RepoGroup
}

type RepoGroup struct {
	Name         string
	PullRequests []Activity
	Issues       []Activity
}

// Count walks the grouped structure. It must always equal Total.
func (d Digest) Count() int {
	n := 0
	for _, day := range d.Days {
		for _, repo := range day.Repos {
			n += len(repo.PullRequests) + len(repo.Issues)
		}
	}
	return n
}

// BuildDigest groups activities by creation date (newest day first), then
// by repository in first-seen order, then by kind. It reports false when
// there is nothing to send.
func BuildDigest(activities []Activity, loc *time.Location) (Digest, bool) {
	if len(activities) == 0 {
		return Digest{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	type dayIndex struct {
		group *DayGroup
		repos map[string]int
	}

	days := make(map[string]*dayIndex)
	order := make([]string, 0)

	for _, activity := range activities {
		key := activity.CreatedAt().In(loc).Format(DateLayout)
		day, ok := days[key]
		if !ok {
			day = &dayIndex{group: &DayGroup{Date: key}, repos: map[string]int{}}
			days[key] = day
			order = append(order, key)
		}

		idx, ok := day.repos[activity.RepoName()]
		if !ok {
			idx = len(day.group.Repos)
			day.repos[activity.RepoName()] = idx
			day.group.Repos = append(day.group.Repos, RepoGroup{Name: activity.RepoName()})
		}

		repo := &day.group.Repos[idx]
		switch activity.Kind() {
		case KindPullRequest:
			repo.PullRequests = append(repo.PullRequests, activity)
		default:
			repo.Issues = append(repo.Issues, activity)
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i] > order[j] })

	digest := Digest{
		Total: len(activities),
		Days:  make([]DayGroup, 0, len(order)),
	}
	for _, key := range order {
		digest.Days = append(digest.Days, *days[key].group)
	}

	return digest, true
}
