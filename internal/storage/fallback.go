package storage

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// WriteMode selects which tier(s) a FallbackStorage write goes to.
type WriteMode string

const (
	// WriteToPrimary writes only to the fast/local tier. Typical for a
	// cache sitting in front of a slow backend.
	WriteToPrimary WriteMode = "primary"
	// WriteToSecondary writes only to the durable tier, bypassing the
	// cache tier.
	WriteToSecondary WriteMode = "secondary"
	// WriteToBoth fans the write out to both tiers synchronously. The
	// write succeeds only if both tiers accept it.
	WriteToBoth WriteMode = "both"
)

const bothTiers = "primary or secondary storage"

// FallbackStorage composes two backends into one logical backend with tier
// preference: reads try primary first and fall back to secondary, writes
// follow the configured WriteMode, and files move between tiers only
// through the explicit migration operations. There is no implicit eviction;
// promotion and demotion stay auditable, which matters more in a research
// pipeline than raw hit latency.
type FallbackStorage struct {
	primary   Backend
	secondary Backend
	writeTo   WriteMode
}

// NewFallbackStorage validates the composition up front; an unknown write
// mode or a missing tier fails here, not on the first operation.
func NewFallbackStorage(primary, secondary Backend, writeTo WriteMode) (*FallbackStorage, error) {
	if primary == nil || secondary == nil {
		return nil, &ValidationError{Reason: "both primary and secondary backends are required"}
	}
	switch writeTo {
	case WriteToPrimary, WriteToSecondary, WriteToBoth:
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("write_to must be 'primary', 'secondary', or 'both', got: %q", writeTo)}
	}
	return &FallbackStorage{primary: primary, secondary: secondary, writeTo: writeTo}, nil
}

// WriteMode returns the configured write fan-out mode.
func (s *FallbackStorage) WriteMode() WriteMode {
	return s.writeTo
}

func (s *FallbackStorage) Exists(identifier string) bool {
	return s.primary.Exists(identifier) || s.secondary.Exists(identifier)
}

func (s *FallbackStorage) Read(identifier string) ([]byte, error) {
	if s.primary.Exists(identifier) {
		return s.primary.Read(identifier)
	}
	if s.secondary.Exists(identifier) {
		return s.secondary.Read(identifier)
	}
	return nil, &NotFoundError{Identifier: identifier, Location: bothTiers}
}

func (s *FallbackStorage) Write(identifier string, content []byte) error {
	if s.writeTo == WriteToPrimary || s.writeTo == WriteToBoth {
		if err := s.primary.Write(identifier, content); err != nil {
			return errors.Wrap(err, "write to primary storage failed")
		}
	}
	if s.writeTo == WriteToSecondary || s.writeTo == WriteToBoth {
		if err := s.secondary.Write(identifier, content); err != nil {
			return errors.Wrap(err, "write to secondary storage failed")
		}
	}
	return nil
}

// Delete removes the file from whichever tier(s) contain it. It reports
// whether the file was found in at least one tier; absence from both is
// (false, nil), not an error.
func (s *FallbackStorage) Delete(identifier string) (bool, error) {
	var deleted bool

	if s.primary.Exists(identifier) {
		if _, err := s.primary.Delete(identifier); err != nil {
			return deleted, errors.Wrap(err, "delete from primary storage failed")
		}
		deleted = true
	}
	if s.secondary.Exists(identifier) {
		if _, err := s.secondary.Delete(identifier); err != nil {
			return deleted, errors.Wrap(err, "delete from secondary storage failed")
		}
		deleted = true
	}
	return deleted, nil
}

// List returns the sorted union of both tiers' listings; a file present in
// both tiers appears once.
func (s *FallbackStorage) List(pattern string) ([]string, error) {
	primaryFiles, err := s.primary.List(pattern)
	if err != nil {
		return nil, errors.Wrap(err, "list from primary storage failed")
	}
	secondaryFiles, err := s.secondary.List(pattern)
	if err != nil {
		return nil, errors.Wrap(err, "list from secondary storage failed")
	}

	seen := make(map[string]struct{}, len(primaryFiles)+len(secondaryFiles))
	var union []string
	for _, lists := range [][]string{primaryFiles, secondaryFiles} {
		for _, id := range lists {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			union = append(union, id)
		}
	}
	sort.Strings(union)
	return union, nil
}

func (s *FallbackStorage) Size(identifier string) (int64, error) {
	if s.primary.Exists(identifier) {
		return s.primary.Size(identifier)
	}
	if s.secondary.Exists(identifier) {
		return s.secondary.Size(identifier)
	}
	return 0, &NotFoundError{Identifier: identifier, Location: bothTiers}
}

func (s *FallbackStorage) GetPath(identifier string) (string, error) {
	if s.primary.Exists(identifier) {
		return s.primary.GetPath(identifier)
	}
	if s.secondary.Exists(identifier) {
		return s.secondary.GetPath(identifier)
	}
	return "", &NotFoundError{Identifier: identifier, Location: bothTiers}
}

// Copy duplicates the file within the tier that holds the source (primary
// preferred). It never crosses tiers; that is what the migration
// operations are for.
func (s *FallbackStorage) Copy(sourceID, destID string) error {
	if s.primary.Exists(sourceID) {
		return s.primary.Copy(sourceID, destID)
	}
	if s.secondary.Exists(sourceID) {
		return s.secondary.Copy(sourceID, destID)
	}
	return &NotFoundError{Identifier: sourceID, Location: bothTiers}
}

// Move renames the file within the tier that holds the source (primary
// preferred).
func (s *FallbackStorage) Move(sourceID, destID string) error {
	if s.primary.Exists(sourceID) {
		return s.primary.Move(sourceID, destID)
	}
	if s.secondary.Exists(sourceID) {
		return s.secondary.Move(sourceID, destID)
	}
	return &NotFoundError{Identifier: sourceID, Location: bothTiers}
}

// MigrateToSecondary copies a file from the primary to the secondary tier.
// The source must be in primary; this is a hard contract, not a fallback
// lookup. The primary copy is deleted only after the secondary write
// succeeded, so a failed copy never loses data.
func (s *FallbackStorage) MigrateToSecondary(identifier string, deletePrimary bool) error {
	if !s.primary.Exists(identifier) {
		return &NotFoundError{Identifier: identifier, Location: "primary storage"}
	}

	content, err := s.primary.Read(identifier)
	if err != nil {
		return errors.Wrap(err, "read from primary storage failed")
	}
	if err := s.secondary.Write(identifier, content); err != nil {
		return errors.Wrap(err, "write to secondary storage failed")
	}

	if deletePrimary {
		if _, err := s.primary.Delete(identifier); err != nil {
			return errors.Wrap(err, "delete from primary storage failed after migration")
		}
	}
	return nil
}

// MigrateToPrimary copies a file from the secondary to the primary tier,
// e.g. to bring a remote file back to the local cache tier.
func (s *FallbackStorage) MigrateToPrimary(identifier string, deleteSecondary bool) error {
	if !s.secondary.Exists(identifier) {
		return &NotFoundError{Identifier: identifier, Location: "secondary storage"}
	}

	content, err := s.secondary.Read(identifier)
	if err != nil {
		return errors.Wrap(err, "read from secondary storage failed")
	}
	if err := s.primary.Write(identifier, content); err != nil {
		return errors.Wrap(err, "write to primary storage failed")
	}

	if deleteSecondary {
		if _, err := s.secondary.Delete(identifier); err != nil {
			return errors.Wrap(err, "delete from secondary storage failed after migration")
		}
	}
	return nil
}
