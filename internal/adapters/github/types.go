package github

import "time"

type repositoryJSON struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Archived bool   `json:"archived"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type issueJSON struct {
	Title     string    `json:"title"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	// PullRequest is set when the issues endpoint returns a pull request.
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
}

type pullRequestJSON struct {
	Title     string    `json:"title"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
}

type errorJSON struct {
	Message string `json:"message"`
}
