// Package stages resolves which pages and covers of a manifest belong to a
// commercial stage.
//
// The prepay stage is generated before a buyer pays and is meant to cover a
// small preview subset; postpay covers the remainder. Membership is driven
// entirely by the per-page availability flags — the manifest author decides
// what the preview contains.
package stages
