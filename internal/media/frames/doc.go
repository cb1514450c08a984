// Package frames turns media files into decoded images for the forensic
// extractors.
//
// Still images are decoded in-process (JPEG, PNG, GIF, WebP, BMP, TIFF).
// Video frames are pulled through ffmpeg as PNG over a pipe, so no temporary
// frame files are written. Helpers convert to BT.601 grayscale and resize
// with bilinear filtering so every extractor sees the same pixels.
package frames
