package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// MuxService shells out to ffmpeg/ffprobe for local media assembly: merging
// clips, attaching narration audio, and probing artifacts.
type MuxService struct {
	ffmpegPath  string
	ffprobePath string
	workDir     string
}

func NewMuxService(ffmpegPath, ffprobePath, workDir string) *MuxService {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &MuxService{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		workDir:     workDir,
	}
}

// Available reports whether the ffmpeg binary can be found.
func (s *MuxService) Available() bool {
	_, err := exec.LookPath(s.ffmpegPath)
	return err == nil
}

func (s *MuxService) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s failed: %w: %s", filepath.Base(bin), err, tailOutput(out))
	}
	return out, nil
}

func tailOutput(out []byte) string {
	s := strings.TrimSpace(string(out))
	const max = 400
	if len(s) > max {
		return "..." + s[len(s)-max:]
	}
	return s
}

// MergeVideos concatenates input clips into one output using the concat
// demuxer. Inputs must share codec parameters.
func (s *MuxService) MergeVideos(ctx context.Context, inputPaths []string, outputPath string) error {
	if len(inputPaths) == 0 {
		return fmt.Errorf("no input videos to merge")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	listPath := outputPath + ".concat.txt"
	var b strings.Builder
	for _, p := range inputPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return err
	}
	defer os.Remove(listPath)

	_, err := s.run(ctx, s.ffmpegPath,
		"-y", "-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	)
	return err
}

// AddAudio muxes an audio track onto a video. The shorter stream ends the
// output; video is stream-copied, audio re-encoded to AAC.
func (s *MuxService) AddAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	_, err := s.run(ctx, s.ffmpegPath,
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy", "-c:a", "aac",
		"-shortest",
		outputPath,
	)
	return err
}

// ExtractAudio pulls the audio track out of a video as mp3.
func (s *MuxService) ExtractAudio(ctx context.Context, videoPath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	_, err := s.run(ctx, s.ffmpegPath,
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		outputPath,
	)
	return err
}

// MediaInfo is a condensed ffprobe report.
type MediaInfo struct {
	DurationSeconds float64 `json:"duration_seconds"`
	FormatName      string  `json:"format_name"`
	SizeBytes       int64   `json:"size_bytes"`
	HasVideo        bool    `json:"has_video"`
	HasAudio        bool    `json:"has_audio"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
}

// Probe inspects a media file with ffprobe.
func (s *MuxService) Probe(ctx context.Context, path string) (MediaInfo, error) {
	out, err := s.run(ctx, s.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	if err != nil {
		return MediaInfo{}, err
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return MediaInfo{}, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	info := MediaInfo{FormatName: parsed.Format.FormatName}
	info.DurationSeconds, _ = strconv.ParseFloat(parsed.Format.Duration, 64)
	info.SizeBytes, _ = strconv.ParseInt(parsed.Format.Size, 10, 64)
	for _, stream := range parsed.Streams {
		switch stream.CodecType {
		case "video":
			info.HasVideo = true
			if stream.Width > 0 {
				info.Width = stream.Width
				info.Height = stream.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

// ScratchPath returns a path under the mux work directory.
func (s *MuxService) ScratchPath(parts ...string) string {
	return filepath.Join(append([]string{s.workDir, "processing"}, parts...)...)
}
