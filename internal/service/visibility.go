package service

import (
	"gorm.io/gorm"

	"taskboard/internal/model"
)

// CanView decides whether the actor may read the task. creator must be the
// task's creator; assignee is nil for unassigned tasks. The admin branch is
// deliberately wider: among other things it guarantees oversight of every
// task authored by a regular user, whatever its declared visibility.
func CanView(actor model.User, task model.Task, creator model.User, assignee *model.User) bool {
	if actor.IsAdmin {
		switch {
		case assignee == nil && (task.Visibility == model.VisibilityAll || task.Visibility == model.VisibilityAdmins):
			return true
		case assignee != nil && !assignee.IsAdmin:
			return true
		case assignee != nil && assignee.IsAdmin && task.Visibility != model.VisibilityPrivate:
			return true
		case task.Visibility == model.VisibilityPrivate && task.CreatorID == actor.ID:
			return true
		case !creator.IsAdmin:
			return true
		}
		return false
	}

	switch {
	case task.Visibility == model.VisibilityAll && assignee == nil && creator.IsAdmin:
		return true
	case assignee != nil && assignee.ID == actor.ID:
		return true
	case task.CreatorID == actor.ID && task.Visibility != model.VisibilityAdmins:
		return true
	}
	return false
}

// CanEdit decides whether the actor may mutate tasks at all. Read
// visibility is strictly finer-grained: regular users can see plenty of
// tasks they may never edit; they go through completion requests instead.
func CanEdit(actor model.User) bool { return actor.IsAdmin }

// VisibleScope is the bulk-query equivalent of CanView: it narrows a task
// query to the rows the actor may read, joining users for the creator's and
// assignee's roles.
func VisibleScope(actor model.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.
			Joins("JOIN users AS creators ON creators.id = tasks.creator_id").
			Joins("LEFT JOIN users AS assignees ON assignees.id = tasks.assignee_id")
		if actor.IsAdmin {
			return db.Where(
				`(tasks.assignee_id IS NULL AND tasks.visibility IN (?, ?))
				OR (tasks.assignee_id IS NOT NULL AND assignees.is_admin = ?)
				OR (tasks.assignee_id IS NOT NULL AND assignees.is_admin = ? AND tasks.visibility <> ?)
				OR (tasks.visibility = ? AND tasks.creator_id = ?)
				OR creators.is_admin = ?`,
				model.VisibilityAll, model.VisibilityAdmins,
				false,
				true, model.VisibilityPrivate,
				model.VisibilityPrivate, actor.ID,
				false,
			)
		}
		return db.Where(
			`(tasks.visibility = ? AND tasks.assignee_id IS NULL AND creators.is_admin = ?)
			OR tasks.assignee_id = ?
			OR (tasks.creator_id = ? AND tasks.visibility <> ?)`,
			model.VisibilityAll, true,
			actor.ID,
			actor.ID, model.VisibilityAdmins,
		)
	}
}

// NormalizeAccess applies the write-time visibility/assignee rules and
// returns the visibility and assignee the task must carry:
//   - a regular author always gets visibility=all, assignee=self;
//   - assigning to an admin forces admins unless explicitly private;
//   - assigning to a regular user forces all;
//   - unassigned keeps the requested tier within {all, admins, private},
//     defaulting to all.
func NormalizeAccess(author model.User, requested string, assignee *model.User) (visibility string, assigneeID *uint) {
	if !author.IsAdmin {
		id := author.ID
		return model.VisibilityAll, &id
	}
	if assignee != nil {
		id := assignee.ID
		if assignee.IsAdmin {
			if requested == model.VisibilityPrivate {
				return model.VisibilityPrivate, &id
			}
			return model.VisibilityAdmins, &id
		}
		return model.VisibilityAll, &id
	}
	switch requested {
	case model.VisibilityAll, model.VisibilityAdmins, model.VisibilityPrivate:
		return requested, nil
	}
	return model.VisibilityAll, nil
}

// KnownVisibility reports whether v names a visibility tier.
func KnownVisibility(v string) bool {
	switch v {
	case model.VisibilityAll, model.VisibilityAdmins, model.VisibilityPrivate:
		return true
	}
	return false
}
