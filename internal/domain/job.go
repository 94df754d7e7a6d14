package domain

import (
	"fmt"
	"net/url"
)

// Job is one job posting inside a task payload. It is a value object:
// never persisted on its own, identified by the ID the posting source gave it.
type Job struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Company string `json:"company"`
	URL     string `json:"url"`
}

// Validate checks the enqueue-time required fields. The URL is exempt here
// and is validated per-job at processing time instead.
func (j Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("%w: id", ErrInvalidJob)
	}

	if j.Title == "" {
		return fmt.Errorf("%w: title", ErrInvalidJob)
	}

	if j.Company == "" {
		return fmt.Errorf("%w: company", ErrInvalidJob)
	}

	return nil
}

// ValidateURL reports whether the job's URL is a well-formed absolute
// http(s) URL. A failure here fails fast as that job's outcome rather
// than aborting the batch.
func (j Job) ValidateURL() error {
	u, err := url.Parse(j.URL)
	if err != nil {
		return fmt.Errorf("malformed job URL: %w", err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("job URL must be an absolute http(s) URL, got %q", j.URL)
	}

	return nil
}
