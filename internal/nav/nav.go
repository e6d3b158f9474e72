package nav

import (
	"path"
	"strings"
)

// Item is a navigation entry. Label is shown verbatim when set; otherwise templates translate LabelKey.
type Item struct {
	Path     string
	Label    string
	LabelKey string
	Children []Item
}

// RenderedItem is the template view model of an Item.
type RenderedItem struct {
	Href     string
	Label    string
	LabelKey string
	Active   bool
	Children []RenderedItem
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Main is the header menu used when no remote or file menu is available.
var Main = []Item{
	{Path: "/", LabelKey: "nav.home"},
	{Path: "/about", LabelKey: "nav.about"},
	{Path: "/contact", LabelKey: "nav.contact"},
}

// Build renders navigation items with active state given the current path.
func Build(currentPath string, items []Item) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	if items == nil {
		items = Main
	}
	out := make([]RenderedItem, 0, len(items))
	for _, it := range items {
		r := RenderedItem{
			Href:     it.Path,
			Label:    it.Label,
			LabelKey: it.LabelKey,
			Active:   isActive(it.Path, currentPath),
		}
		if len(it.Children) > 0 {
			r.Children = Build(currentPath, it.Children)
			for _, c := range r.Children {
				r.Active = r.Active || c.Active
			}
		}
		out = append(out, r)
	}
	return out
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "" {
		return false
	}
	if itemPath == "/" || itemPath == "/home" {
		return currentPath == "/" || currentPath == "/home"
	}
	// exact or prefix boundary: "/about" or "/about/..."
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs builds breadcrumb entries from the current path. Top-level sections
// take their label from items; deeper segments are prettified, and the last one
// uses leaf when given (e.g. a product name).
func Breadcrumbs(currentPath string, items []Item, leaf string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	if items == nil {
		items = Main
	}
	crumbs := []Crumb{{Href: "/", LabelKey: "nav.home", Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}

	clean := path.Clean(currentPath)
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return crumbs
	}

	top := "/" + parts[0]
	first := Crumb{Href: top, Label: titleFromSegment(parts[0]), Active: len(parts) == 1}
	for _, it := range items {
		if it.Path == top {
			first.LabelKey = it.LabelKey
			if it.Label != "" {
				first.Label = it.Label
			}
			break
		}
	}
	if first.Active && leaf != "" {
		first.Label, first.LabelKey = leaf, ""
	}
	crumbs = append(crumbs, first)

	href := top
	for i := 1; i < len(parts); i++ {
		href = href + "/" + parts[i]
		c := Crumb{Href: href, Label: titleFromSegment(parts[i]), Active: i == len(parts)-1}
		if c.Active && leaf != "" {
			c.Label = leaf
		}
		crumbs = append(crumbs, c)
	}
	return crumbs
}

func titleFromSegment(seg string) string {
	if seg == "" {
		return seg
	}
	s := strings.NewReplacer("-", " ", "_", " ").Replace(seg)
	r := []rune(s)
	r[0] = toUpper(r[0])
	return string(r)
}

func toUpper(r rune) rune {
	// slugs are ASCII
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
