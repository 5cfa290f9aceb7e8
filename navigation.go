package session

import "sort"

// PageRecord is a leaf navigation entry from the remote menu payload.
type PageRecord struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Icon         string `json:"icon"`
	DisplayOrder int    `json:"display_order"`
}

// SubmenuRecord groups pages one level below a menu.
type SubmenuRecord struct {
	ID           int          `json:"id"`
	Title        string       `json:"title"`
	Icon         string       `json:"icon"`
	DisplayOrder int          `json:"display_order"`
	Pages        []PageRecord `json:"pages,omitempty"`
}

// MenuRecord is a top-level navigation entry. A menu may carry direct
// pages, submenus, or both.
type MenuRecord struct {
	ID           int             `json:"id"`
	Title        string          `json:"title"`
	Icon         string          `json:"icon"`
	DisplayOrder int             `json:"display_order"`
	Pages        []PageRecord    `json:"pages,omitempty"`
	Submenus     []SubmenuRecord `json:"submenus,omitempty"`
}

// NavigationNode is one node of the built navigation tree. Level is
// structural depth (0 menu, 1 submenu or direct page, 2 page); leaf pages
// never have children.
type NavigationNode struct {
	ID       int               `json:"id"`
	Title    string            `json:"title"`
	URL      string            `json:"url,omitempty"`
	Icon     string            `json:"icon"`
	Level    int               `json:"level"`
	Expanded bool              `json:"expanded"`
	Children []*NavigationNode `json:"children,omitempty"`
}

// BuildNavigationTree reshapes the flat menu payload into a three-level
// forest. Every level sorts by display order ascending, stable for ties.
// Only level-0 nodes start expanded.
func BuildNavigationTree(menus []MenuRecord) []*NavigationNode {
	roots := make([]*NavigationNode, 0, len(menus))

	ordered := make([]MenuRecord, len(menus))
	copy(ordered, menus)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DisplayOrder < ordered[j].DisplayOrder
	})

	for _, menu := range ordered {
		root := &NavigationNode{
			ID:       menu.ID,
			Title:    menu.Title,
			Icon:     menu.Icon,
			Level:    0,
			Expanded: true,
		}
		root.Children = buildMenuChildren(menu)
		roots = append(roots, root)
	}

	return roots
}

// buildMenuChildren merges a menu's direct pages and submenus into one
// ordered level-1 sequence.
func buildMenuChildren(menu MenuRecord) []*NavigationNode {
	type orderedChild struct {
		order int
		node  *NavigationNode
	}

	children := make([]orderedChild, 0, len(menu.Pages)+len(menu.Submenus))

	for _, page := range menu.Pages {
		children = append(children, orderedChild{
			order: page.DisplayOrder,
			node:  pageNode(page, 1),
		})
	}

	for _, submenu := range menu.Submenus {
		node := &NavigationNode{
			ID:    submenu.ID,
			Title: submenu.Title,
			Icon:  submenu.Icon,
			Level: 1,
		}

		pages := make([]PageRecord, len(submenu.Pages))
		copy(pages, submenu.Pages)
		sort.SliceStable(pages, func(i, j int) bool {
			return pages[i].DisplayOrder < pages[j].DisplayOrder
		})
		for _, page := range pages {
			node.Children = append(node.Children, pageNode(page, 2))
		}

		children = append(children, orderedChild{
			order: submenu.DisplayOrder,
			node:  node,
		})
	}

	sort.SliceStable(children, func(i, j int) bool {
		return children[i].order < children[j].order
	})

	nodes := make([]*NavigationNode, 0, len(children))
	for _, child := range children {
		nodes = append(nodes, child.node)
	}
	return nodes
}

func pageNode(page PageRecord, level int) *NavigationNode {
	return &NavigationNode{
		ID:    page.ID,
		Title: page.Title,
		URL:   page.URL,
		Icon:  page.Icon,
		Level: level,
	}
}
