package bot

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50
)

// RecentArgs holds the parsed arguments of /recent.
type RecentArgs struct {
	Limit int
	Query string
}

// ParseRecentArgs parses "[n] [query...]". A leading integer is the limit;
// everything else is a title search.
func ParseRecentArgs(args string) (RecentArgs, error) {
	parts := strings.Fields(args)
	out := RecentArgs{Limit: defaultRecentLimit}
	if len(parts) == 0 {
		return out, nil
	}

	if n, err := strconv.Atoi(parts[0]); err == nil {
		if n < 1 || n > maxRecentLimit {
			return RecentArgs{}, fmt.Errorf("count must be between 1 and %d", maxRecentLimit)
		}
		out.Limit = n
		parts = parts[1:]
	}
	out.Query = strings.Join(parts, " ")
	return out, nil
}

// ParseValueArg extracts the single value of /addkeyword, /addchannel, etc.
func ParseValueArg(args, what string) (string, error) {
	v := strings.TrimSpace(args)
	if v == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	if strings.Contains(v, ",") {
		return "", fmt.Errorf("%s cannot contain commas", what)
	}
	return v, nil
}
