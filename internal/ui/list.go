package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/oe/sunrain-sub001/internal/models"
)

var _ list.Item = recordItem{}

// recordItem wraps [models.ContentRecord] to implement [list.Item].
type recordItem struct {
	record models.ContentRecord
}

func (i recordItem) FilterValue() string {
	return i.record.Title + " " + i.record.Artist + " " + strings.Join(i.record.Themes, " ")
}

func (i recordItem) Title() string { return i.record.Title }

func (i recordItem) Description() string {
	desc := fmt.Sprintf("%s %s • score %d", i.record.Source, i.record.Type, i.record.TotalScore())
	if i.record.Artist != "" {
		desc = fmt.Sprintf("%s • %s", i.record.Artist, desc)
	}
	if len(i.record.Themes) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, strings.Join(i.record.Themes, ", "))
	}
	return desc
}

func recordItems(records []models.ContentRecord) []list.Item {
	items := make([]list.Item, len(records))
	for i, r := range records {
		items[i] = recordItem{record: r}
	}
	return items
}
