// Package similarity scores whether a candidate marketplace listing depicts
// the same physical item as a source listing and estimates the resale profit.
//
// Both images are padded onto a white square and scaled to one working
// resolution, then four independent metrics are computed:
//   - keypoints: oriented FAST corners with rotated binary descriptors over a
//     three-level pyramid, matched by mutual nearest neighbour plus ratio test
//   - structural: windowed SSIM on grayscale
//   - histogram: HSV histogram correlation over the non-padded content
//   - template: Sobel edge maps compared by normalized cross-correlation at
//     several scales, to catch near-identical crops
//
// The composite is the weighted sum over metrics that produced a score, with
// weights renormalized to sum to 1. The keypoint metric is excluded rather than
// zeroed when either image yields fewer than Tuning.MinKeypoints keypoints.
// Optional RANSAC homography verification multiplies the keypoint score by
// Tuning.GeometricPenalty when fewer than Tuning.GeometricMinInliers matches
// agree with the best fitted transform.
//
// Title similarity never overrides a clear image decision. It is blended in
// with weight Tuning.TitleWeight only when both titles are present and the image
// composite lies within Tuning.TitleBand points of Thresholds.MinSimilarity.
//
// The Engine holds no mutable state. Every input that affects a score arrives
// through Config, so identical inputs always produce identical scores.
// Debug artifacts are written only through an optional Observer.
package similarity
