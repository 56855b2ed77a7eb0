package stages

import (
	"fmt"
	"sort"
	"strings"

	"storyloom/internal/manifest"
)

// Stage is a commercial generation phase.
type Stage string

const (
	StagePrepay  Stage = "prepay"
	StagePostpay Stage = "postpay"
)

// Parse converts a string into a known Stage.
func Parse(value string) (Stage, error) {
	switch Stage(strings.ToLower(strings.TrimSpace(value))) {
	case StagePrepay:
		return StagePrepay, nil
	case StagePostpay:
		return StagePostpay, nil
	default:
		return "", fmt.Errorf("unknown stage %q", value)
	}
}

// CoverType identifies a cover slot.
type CoverType string

const (
	CoverFront CoverType = "front"
	CoverBack  CoverType = "back"
)

// PageNum returns the reserved page number used for a cover's artifacts.
func (c CoverType) PageNum() int {
	if c == CoverBack {
		return manifest.BackCoverPageNum
	}
	return manifest.FrontCoverPageNum
}

// Cover pairs a cover slot with its spec.
type Cover struct {
	Type CoverType
	Spec *manifest.CoverSpec
}

// frontHiddenPages lists page numbers excluded from front-facing previews.
// Currently empty; the mechanism stays so product can hide spine or legal
// pages without touching resolver logic.
var frontHiddenPages = map[int]struct{}{}

func excludeFrontHidden(nums []int) []int {
	out := nums[:0]
	for _, n := range nums {
		if _, hidden := frontHiddenPages[n]; !hidden {
			out = append(out, n)
		}
	}
	return out
}

// FrontVisiblePages returns every page number shown in front-facing previews,
// ascending and deduplicated.
func FrontVisiblePages(m *manifest.Manifest) []int {
	seen := make(map[int]struct{}, len(m.Pages))
	nums := make([]int, 0, len(m.Pages))
	for i := range m.Pages {
		n := m.Pages[i].PageNum
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return excludeFrontHidden(nums)
}

// PagesForStage returns the ordered page numbers belonging to a stage.
func PagesForStage(m *manifest.Manifest, stage Stage) []int {
	seen := make(map[int]struct{}, len(m.Pages))
	nums := make([]int, 0, len(m.Pages))
	for i := range m.Pages {
		p := &m.Pages[i]
		avail := p.Availability != nil && stageFlag(p.Availability, stage)
		if !avail {
			continue
		}
		if stage == StagePrepay {
			if _, hidden := frontHiddenPages[p.PageNum]; hidden {
				continue
			}
		}
		if _, dup := seen[p.PageNum]; dup {
			continue
		}
		seen[p.PageNum] = struct{}{}
		nums = append(nums, p.PageNum)
	}
	sort.Ints(nums)
	return nums
}

// PagesForFrontPreview returns the stage's pages minus front-hidden pages.
func PagesForFrontPreview(m *manifest.Manifest, stage Stage) []int {
	return excludeFrontHidden(PagesForStage(m, stage))
}

// CoversForStage returns the covers generated in a stage, front before back.
func CoversForStage(m *manifest.Manifest, stage Stage) []Cover {
	if m.Covers == nil {
		return nil
	}
	var out []Cover
	for _, entry := range []struct {
		kind CoverType
		spec *manifest.CoverSpec
	}{{CoverFront, m.Covers.Front}, {CoverBack, m.Covers.Back}} {
		if entry.spec == nil || entry.spec.Availability == nil {
			continue
		}
		if stageFlag(entry.spec.Availability, stage) {
			out = append(out, Cover{Type: entry.kind, Spec: entry.spec})
		}
	}
	return out
}

// HasFaceSwap reports whether any page in the resolved stage set needs face
// transformation. Callers use this to skip engaging the render collaborator
// for text-only stages.
func HasFaceSwap(m *manifest.Manifest, stage Stage) bool {
	for _, pageNum := range PagesForStage(m, stage) {
		if spec := m.PageByNum(pageNum); spec != nil && spec.NeedsFaceSwap {
			return true
		}
	}
	return false
}

func stageFlag(a *manifest.Availability, stage Stage) bool {
	if stage == StagePrepay {
		return a.Prepay
	}
	return a.Postpay
}
