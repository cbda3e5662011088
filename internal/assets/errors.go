package assets

import "fmt"

// AssetNotFoundError means the scrape succeeded but no matching asset was
// on the page (or no team page exists at all, in which case AssetType is
// empty).
type AssetNotFoundError struct {
	TeamName  string
	AssetType string
	Err       error
}

func (e *AssetNotFoundError) Error() string {
	if e.AssetType == "" {
		return fmt.Sprintf("no team page found for %s", e.TeamName)
	}

	return fmt.Sprintf("no %s asset found for team %s", e.AssetType, e.TeamName)
}

func (e *AssetNotFoundError) Unwrap() error {
	return e.Err
}
