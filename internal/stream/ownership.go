package stream

import (
	"context"

	"github.com/xxxsen/ragcore/internal/repo"
)

// OwnershipChecker is the "external hook" of §4.8 step 1: it verifies that
// a user may act on a project before a session does any work on its
// behalf.
type OwnershipChecker interface {
	Owns(ctx context.Context, userID, projectID string) (bool, error)
}

// RepoOwnershipChecker implements OwnershipChecker against the relational
// store's Project rows.
type RepoOwnershipChecker struct {
	projects *repo.ProjectRepo
}

func NewRepoOwnershipChecker(projects *repo.ProjectRepo) *RepoOwnershipChecker {
	return &RepoOwnershipChecker{projects: projects}
}

func (c *RepoOwnershipChecker) Owns(ctx context.Context, userID, projectID string) (bool, error) {
	project, err := c.projects.Get(ctx, projectID)
	if err != nil {
		return false, err
	}
	return project.OwnerID == userID, nil
}
