// Package video exports rendered frames, either as a numbered PNG sequence
// or piped into ffmpeg as raw RGBA.
package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Sink consumes frames in order. WriteFrame takes ownership of img and hands
// it to the release func once it no longer needs it.
type Sink interface {
	WriteFrame(index int, img *image.RGBA) error
	Close() error
}

// PNGWriter encodes frames to Dir/frame_00001.png concurrently.
type PNGWriter struct {
	dir     string
	release func(*image.RGBA)
	g       *errgroup.Group
	ctx     context.Context
}

// NewPNGWriter creates dir and starts a writer with at most workers
// concurrent encodes. release may be nil.
func NewPNGWriter(ctx context.Context, dir string, workers int, release func(*image.RGBA)) (*PNGWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	return &PNGWriter{dir: dir, release: release, g: g, ctx: ctx}, nil
}

// FramePath is where frame index is written.
func FramePath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("frame_%05d.png", index+1))
}

// WriteFrame queues img. It blocks while every worker is busy.
func (w *PNGWriter) WriteFrame(index int, img *image.RGBA) error {
	if err := w.ctx.Err(); err != nil {
		w.done(img)
		return err
	}
	w.g.Go(func() error {
		defer w.done(img)
		f, err := os.Create(FramePath(w.dir, index))
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("encode frame %d: %w", index+1, err)
		}
		return f.Close()
	})
	return nil
}

func (w *PNGWriter) done(img *image.RGBA) {
	if w.release != nil {
		w.release(img)
	}
}

// Close waits for queued frames and returns the first error.
func (w *PNGWriter) Close() error {
	return w.g.Wait()
}

// EncoderParams describe the ffmpeg output.
type EncoderParams struct {
	Width, Height int
	FPS           int
	Encoder       string
	Quality       int
}

// FFmpegEncoder streams raw RGBA frames to an ffmpeg process.
type FFmpegEncoder struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	out     bytes.Buffer
	release func(*image.RGBA)
}

// NewFFmpegEncoder starts ffmpeg writing to videoPath.
func NewFFmpegEncoder(ctx context.Context, videoPath string, params EncoderParams, release func(*image.RGBA)) (*FFmpegEncoder, error) {
	e := &FFmpegEncoder{release: release}
	e.cmd = exec.CommandContext(ctx, "ffmpeg", buildFFmpegArgs(videoPath, params)...)
	e.cmd.Stdout = &e.out
	e.cmd.Stderr = &e.out

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	e.stdin = stdin
	if err := e.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return e, nil
}

// DefaultQuality is the quality used when none is configured.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	}
	return 23
}

func buildFFmpegArgs(videoPath string, params EncoderParams) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-framerate", fmt.Sprintf("%d", params.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", params.Encoder,
	}

	// Quality depends on the encoder
	switch params.Encoder {
	case "h264_videotoolbox":
		bitrate := params.Quality * 100
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", params.Quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", params.Quality), "-preset", "medium")
	}

	return append(args, videoPath)
}

// WriteFrame pipes img to ffmpeg. Frames are written in call order; index is
// informational.
func (e *FFmpegEncoder) WriteFrame(_ int, img *image.RGBA) error {
	err := writeRawRGBA(e.stdin, img)
	if e.release != nil {
		e.release(img)
	}
	if err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	return nil
}

// Close ends the stream and waits for ffmpeg.
func (e *FFmpegEncoder) Close() error {
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg error: %v, output: %s", err, e.out.String())
	}
	return nil
}

// writeRawRGBA writes the pixels of img row by row without padding.
func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	b := img.Bounds()
	if img.Stride == b.Dx()*4 {
		_, err := w.Write(img.Pix[img.PixOffset(b.Min.X, b.Min.Y) : img.PixOffset(b.Min.X, b.Max.Y-1)+b.Dx()*4])
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		if _, err := w.Write(img.Pix[i : i+b.Dx()*4]); err != nil {
			return err
		}
	}
	return nil
}
