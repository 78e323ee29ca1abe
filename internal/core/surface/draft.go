package surface

import (
	"slices"

	"timerbar/internal/core/model"
)

// Draft is the selection a new timer starts with. While a timer runs
// it mirrors the running timer's fields.
type Draft struct {
	Description string
	ProjectID   int64
	ProjectName string
	TaskID      int64
	TaskName    string
	TagIDs      []int64
	TagNames    []string
}

// Request converts the draft into a start request.
func (draft Draft) Request() model.StartRequest {
	return model.StartRequest{
		Description: draft.Description,
		ProjectID:   draft.ProjectID,
		TaskID:      draft.TaskID,
		TagIDs:      slices.Clone(draft.TagIDs),
	}
}

// HasTag reports whether tagID is selected.
func (draft Draft) HasTag(tagID int64) bool {
	return slices.Contains(draft.TagIDs, tagID)
}

func (draft Draft) clone() Draft {
	draft.TagIDs = slices.Clone(draft.TagIDs)
	draft.TagNames = slices.Clone(draft.TagNames)
	return draft
}

// toggled returns the tag lists with tag added or removed.
func (draft Draft) toggled(tag model.Tag) ([]int64, []string) {
	ids := slices.Clone(draft.TagIDs)
	names := slices.Clone(draft.TagNames)
	if index := slices.Index(ids, tag.ID); index >= 0 {
		ids = slices.Delete(ids, index, index+1)
		if index < len(names) {
			names = slices.Delete(names, index, index+1)
		}
		return ids, names
	}
	return append(ids, tag.ID), append(names, tag.Name)
}

func draftFromState(state model.TimerUIState) Draft {
	return Draft{
		Description: state.Description,
		ProjectID:   state.ProjectID,
		ProjectName: state.ProjectName,
		TaskID:      state.TaskID,
		TaskName:    state.TaskName,
		TagIDs:      slices.Clone(state.TagIDs),
		TagNames:    slices.Clone(state.TagNames),
	}
}

func draftFromFavorite(favorite model.Favorite) Draft {
	return Draft{
		Description: favorite.Description,
		ProjectID:   favorite.ProjectID,
		ProjectName: favorite.ProjectName,
		TaskID:      favorite.TaskID,
		TaskName:    favorite.TaskName,
		TagIDs:      slices.Clone(favorite.TagIDs),
		TagNames:    slices.Clone(favorite.TagNames),
	}
}
