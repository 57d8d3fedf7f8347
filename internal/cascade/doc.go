// Package cascade decides a subject label for one file.
//
// # Decision Order
//
// The cheap probe runs first: the lowercased file stem is sent for
// classification, and any non-fallback answer ends the cascade without
// touching the file contents. Otherwise the extension picks a family
// (document, image, archive, audio), the matching extractor produces an
// excerpt, and the excerpt is classified. Archives classify their member
// listing first and unpack at most one document member when the listing
// answer is the fallback; members carry document extensions only, so
// nesting stops after one level.
//
// # Failure Behaviour
//
// Classification and extraction failures never abort a file. The result
// degrades to the fallback label with a reason naming the cause and the
// underlying error attached for the journal. The only error Decide returns
// is context cancellation, which means the whole run is stopping and the
// file should be skipped rather than filed under the fallback.
//
// # Pool Feedback
//
// The content phase (extraction plus content classification) runs inside
// Gate.Enter/Leave so the scheduler can see how many workers sit in the
// slow phase at once.
package cascade
