package blob

import (
	"fmt"
	"path"
	"strings"

	"storyloom/internal/manifest"
)

// PageKey returns the storage-addressing name for a page number. Reserved
// negative numbers map to the cover slots.
func PageKey(pageNum int) string {
	switch pageNum {
	case manifest.FrontCoverPageNum:
		return "front_cover"
	case manifest.BackCoverPageNum:
		return "back_cover"
	default:
		return fmt.Sprintf("page_%02d", pageNum)
	}
}

// BackgroundKey returns the deterministic key for a page's background artifact.
func BackgroundKey(jobID string, pageNum int) string {
	return fmt.Sprintf("layout/%s/pages/%s_bg.png", jobID, PageKey(pageNum))
}

// FinalKey returns the deterministic key for a page's final composited artifact.
func FinalKey(jobID string, pageNum int) string {
	return fmt.Sprintf("layout/%s/pages/%s.png", jobID, PageKey(pageNum))
}

// VariantKeys returns the key itself plus known image extension variants, in
// lookup order. Manifest authors occasionally upload .jpg masters for keys
// declared .png and vice versa.
func VariantKeys(key string) []string {
	lower := strings.ToLower(key)
	switch {
	case strings.HasSuffix(lower, ".png"):
		base := key[:len(key)-4]
		return []string{key, base + ".jpg", base + ".jpeg"}
	case strings.HasSuffix(lower, ".jpeg"):
		return []string{key, key[:len(key)-5] + ".png"}
	case strings.HasSuffix(lower, ".jpg"):
		return []string{key, key[:len(key)-4] + ".png"}
	default:
		return []string{key}
	}
}

// MaskKey derives the sibling mask key for a base illustration key:
// dir/name.ext -> dir/name_mask.png. Absence of the mask is not an error.
func MaskKey(key string) string {
	dir, file := path.Split(key)
	ext := path.Ext(file)
	root := strings.TrimSuffix(file, ext)
	return dir + root + "_mask.png"
}
