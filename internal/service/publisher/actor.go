package publisher

import (
	"fmt"
	"os"
	"os/user"
)

// actor identifies who started a release, for the audit trail in the logs.
type actor struct {
	// Hostname of the machine running the publish.
	Hostname string
	// Username of the account running the publish.
	Username string
}

func detectActor() (*actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
