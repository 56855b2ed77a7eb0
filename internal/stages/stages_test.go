package stages_test

import (
	"reflect"
	"testing"

	"storyloom/internal/manifest"
	"storyloom/internal/stages"
)

func avail(prepay, postpay bool) *manifest.Availability {
	return &manifest.Availability{Prepay: prepay, Postpay: postpay}
}

func buildManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Slug: "test-book",
		Pages: []manifest.PageSpec{
			{PageNum: 3, BaseKey: "p3", Availability: avail(false, true)},
			{PageNum: 1, BaseKey: "p1", Availability: avail(true, true), NeedsFaceSwap: true},
			{PageNum: 2, BaseKey: "p2", Availability: avail(false, true)},
			{PageNum: 9, BaseKey: "p9", Availability: avail(true, false)},
		},
		Covers: &manifest.CoversSpec{
			Front: &manifest.CoverSpec{BaseKey: "front", Availability: avail(true, true)},
			Back:  &manifest.CoverSpec{BaseKey: "back", Availability: avail(false, true)},
		},
	}
}

func TestParse(t *testing.T) {
	if _, err := stages.Parse("preview"); err == nil {
		t.Error("expected error for unknown stage")
	}
	stage, err := stages.Parse(" Prepay ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stage != stages.StagePrepay {
		t.Fatalf("got %q", stage)
	}
}

func TestPagesForStageOrdering(t *testing.T) {
	m := buildManifest()
	prepay := stages.PagesForStage(m, stages.StagePrepay)
	if !reflect.DeepEqual(prepay, []int{1, 9}) {
		t.Fatalf("prepay pages: got %v", prepay)
	}
	postpay := stages.PagesForStage(m, stages.StagePostpay)
	if !reflect.DeepEqual(postpay, []int{1, 2, 3}) {
		t.Fatalf("postpay pages: got %v", postpay)
	}
}

func TestNoPageLeaksIntoUnflaggedStage(t *testing.T) {
	m := buildManifest()
	for _, stage := range []stages.Stage{stages.StagePrepay, stages.StagePostpay} {
		for _, pageNum := range stages.PagesForStage(m, stage) {
			spec := m.PageByNum(pageNum)
			if spec == nil {
				t.Fatalf("%s: resolved page %d missing from manifest", stage, pageNum)
			}
			flagged := spec.Availability.Postpay
			if stage == stages.StagePrepay {
				flagged = spec.Availability.Prepay
			}
			if !flagged {
				t.Errorf("%s: page %d resolved without its availability flag", stage, pageNum)
			}
		}
	}
}

func TestCoversForStageOrdering(t *testing.T) {
	m := buildManifest()
	prepay := stages.CoversForStage(m, stages.StagePrepay)
	if len(prepay) != 1 || prepay[0].Type != stages.CoverFront {
		t.Fatalf("prepay covers: got %+v", prepay)
	}
	postpay := stages.CoversForStage(m, stages.StagePostpay)
	if len(postpay) != 2 || postpay[0].Type != stages.CoverFront || postpay[1].Type != stages.CoverBack {
		t.Fatalf("postpay covers: got %+v", postpay)
	}
	if postpay[0].Type.PageNum() != manifest.FrontCoverPageNum || postpay[1].Type.PageNum() != manifest.BackCoverPageNum {
		t.Fatal("cover page number mapping broken")
	}
}

func TestCoversForStageWithoutCovers(t *testing.T) {
	m := buildManifest()
	m.Covers = nil
	if covers := stages.CoversForStage(m, stages.StagePostpay); covers != nil {
		t.Fatalf("expected nil covers, got %+v", covers)
	}
}

func TestHasFaceSwap(t *testing.T) {
	m := buildManifest()
	if !stages.HasFaceSwap(m, stages.StagePrepay) {
		t.Error("prepay should need face swap (page 1)")
	}
	m.PageByNum(1).NeedsFaceSwap = false
	if stages.HasFaceSwap(m, stages.StagePrepay) {
		t.Error("prepay should not need face swap after clearing flag")
	}
}

func TestFrontVisiblePages(t *testing.T) {
	m := buildManifest()
	visible := stages.FrontVisiblePages(m)
	if !reflect.DeepEqual(visible, []int{1, 2, 3, 9}) {
		t.Fatalf("front-visible pages: got %v", visible)
	}
	preview := stages.PagesForFrontPreview(m, stages.StagePostpay)
	if !reflect.DeepEqual(preview, []int{1, 2, 3}) {
		t.Fatalf("front preview pages: got %v", preview)
	}
}
