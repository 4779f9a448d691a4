// Package render turns downloaded sticker assets into display-ready images.
//
// Decode accepts PNG, JPEG, GIF and WebP (golang.org/x/image/webp). Render
// then applies, in order:
//
//   - Scale: fit inside Options.TargetSize keeping the aspect ratio, using
//     Catmull-Rom resampling from golang.org/x/image/draw.
//   - AddBorder: a white band around the opaque silhouette, built by dilating
//     the alpha channel.
//   - AddShadow: the silhouette offset down and right, box-blurred and drawn
//     underneath.
//
// Border and shadow widths scale with the output size. When TargetSize is
// set, the decorated result still fits inside it.
package render
