package mock

import (
	"fmt"
	"time"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

const kib = 1024

// Внешние адреса демонстрационного содержимого.
const (
	samplePDF   = "https://www.w3.org/WAI/ER/tests/xhtml/testfiles/resources/pdf/dummy.pdf"
	sampleVideo = "https://sample-videos.com/zip/10/mp4/SampleVideo_1280x720_1mb.mp4"
	sampleAudio = "https://www.soundjay.com/misc/sounds/bell-ringing-05.wav"
	sampleZip   = "https://www.learningcontainer.com/wp-content/uploads/2020/05/sample-zip-file.zip"
)

func unsplash(photo string) string {
	return "https://images.unsplash.com/photo-" + photo + "?w=200&h=200&fit=crop&crop=center"
}

type fixture struct {
	n    int
	name string
	size int64
	typ  model.Category
	ext  string
	age  time.Duration
	url  string
}

var fixtures = []fixture{
	{1, "sample-document.pdf", 1024 * kib, model.CategoryDocument, "pdf", 0, samplePDF},
	{2, "sample-image.jpg", 512 * kib, model.CategoryImage, "jpg", 24 * time.Hour, unsplash("1506905925346-21bda4d32df4")},
	{3, "sample-video.mp4", 2048 * kib, model.CategoryVideo, "mp4", 48 * time.Hour, sampleVideo},
	{4, "sample-audio.mp3", 256 * kib, model.CategoryAudio, "mp3", 72 * time.Hour, sampleAudio},
	{5, "sample-archive.zip", 1536 * kib, model.CategoryOther, "zip", 96 * time.Hour, sampleZip},
	{6, "landscape-photo.jpg", 768 * kib, model.CategoryImage, "jpg", 12 * time.Hour, unsplash("1441974231531-c6227db76b6e")},
	{7, "portrait-photo.jpg", 640 * kib, model.CategoryImage, "jpg", 6 * time.Hour, unsplash("1438761681033-6461ffad8d80")},
	{8, "presentation.pptx", 2048 * kib, model.CategoryDocument, "pptx", 2 * time.Hour, samplePDF},
	{9, "meeting-recording.mp4", 5120 * kib, model.CategoryVideo, "mp4", time.Hour, sampleVideo},
	{10, "project-specs.docx", 1536 * kib, model.CategoryDocument, "docx", 30 * time.Minute, samplePDF},
	{11, "team-photo.png", 1024 * kib, model.CategoryImage, "png", 15 * time.Minute, unsplash("1522071820081-009f0129c71c")},
	{12, "podcast-episode.mp3", 3072 * kib, model.CategoryAudio, "mp3", 10 * time.Minute, sampleAudio},
	{13, "data-backup.tar.gz", 4096 * kib, model.CategoryOther, "tar.gz", 5 * time.Minute, sampleZip},
	{14, "screenshot.png", 512 * kib, model.CategoryImage, "png", 2 * time.Minute, unsplash("1555066931-4365d14bab8c")},
	{15, "quick-notes.txt", 128 * kib, model.CategoryDocument, "txt", time.Minute, samplePDF},
	{16, "logo-design.ai", 2560 * kib, model.CategoryOther, "ai", 30 * time.Second, sampleZip},
	{17, "video-tutorial.mp4", 8192 * kib, model.CategoryVideo, "mp4", 15 * time.Second, sampleVideo},
	{18, "invoice.pdf", 768 * kib, model.CategoryDocument, "pdf", 5 * time.Second, samplePDF},
	{19, "wallpaper.jpg", 2048 * kib, model.CategoryImage, "jpg", 2 * time.Second, unsplash("1506905925346-21bda4d32df4")},
	{20, "final-report.docx", 3072 * kib, model.CategoryDocument, "docx", time.Second, samplePDF},
	{21, "design-mockup.psd", 4096 * kib, model.CategoryOther, "psd", 500 * time.Millisecond, sampleZip},
	{22, "product-catalog.pdf", 1536 * kib, model.CategoryDocument, "pdf", 250 * time.Millisecond, samplePDF},
	{23, "team-meeting.mp4", 6144 * kib, model.CategoryVideo, "mp4", 100 * time.Millisecond, sampleVideo},
	{24, "logo-variants.png", 896 * kib, model.CategoryImage, "png", 50 * time.Millisecond, unsplash("1506905925346-21bda4d32df4")},
	{25, "client-feedback.docx", 2048 * kib, model.CategoryDocument, "docx", 25 * time.Millisecond, samplePDF},
	{26, "website-screenshot.png", 640 * kib, model.CategoryImage, "png", 10 * time.Millisecond, unsplash("1555066931-4365d14bab8c")},
	{27, "database-backup.sql", 1024 * kib, model.CategoryOther, "sql", 5 * time.Millisecond, sampleZip},
	{28, "presentation-slides.pptx", 2560 * kib, model.CategoryDocument, "pptx", 2 * time.Millisecond, samplePDF},
	{29, "brand-guidelines.pdf", 1792 * kib, model.CategoryDocument, "pdf", time.Millisecond, samplePDF},
	{30, "latest-update.txt", 256 * kib, model.CategoryDocument, "txt", 0, samplePDF},
}

// FixtureOwner - владелец демонстрационных файлов.
const FixtureOwner = "John Doe"

// Fixtures возвращает 30 демонстрационных файлов, созданных относительно now.
func Fixtures(now time.Time) []model.FileRecord {
	out := make([]model.FileRecord, 0, len(fixtures))
	for _, f := range fixtures {
		out = append(out, model.FileRecord{
			ID:           fmt.Sprintf("dev-file-%d", f.n),
			Name:         f.name,
			Extension:    f.ext,
			Type:         f.typ,
			Size:         f.size,
			CreatedAt:    now.Add(-f.age).UTC(),
			URL:          f.url,
			BucketFileID: fmt.Sprintf("dev-bucket-%d", f.n),
			Owner:        FixtureOwner,
			SharedWith:   []string{},
		})
	}
	return out
}
