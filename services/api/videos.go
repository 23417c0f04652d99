package apisvc

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/lms"
)

// ProgressFunc receives the upload progress as a percentage.
type ProgressFunc func(percent int)

func (c *Client) Videos(ctx context.Context) ([]lms.Video, error) {
	videos, err := listAll[lms.Video](ctx, c, resourcePath("videos"))
	return videos, errors.Wrap(err, "listing videos")
}

func (c *Client) DeleteVideo(ctx context.Context, id int) error {
	return errors.Wrapf(c.delete(ctx, resourcePath("videos", id)), "deleting video %d", id)
}

// UploadVideo streams `file` as a multipart form, reporting progress to `progress` (may be nil).
// `file` is rewound if the upload has to be re-sent.
func (c *Client) UploadVideo(ctx context.Context, vu lms.VideoUpload, file io.ReadSeeker, progress ProgressFunc) (lms.Video, error) {
	var v lms.Video
	if err := vu.Validate(); err != nil {
		return v, err
	}
	body := &videoBody{upload: vu, file: file, progress: progress}
	defer body.stop()

	req := &request{method: http.MethodPost, path: resourcePath("videos"), body: body.build}
	if err := c.do(ctx, req, &v); err != nil {
		return v, errors.Wrap(err, "uploading video")
	}
	return v, nil
}

var errUploadRestarted = errors.New("upload restarted")

type videoBody struct {
	upload   lms.VideoUpload
	file     io.ReadSeeker
	progress ProgressFunc

	pr   *io.PipeReader
	done chan struct{}
}

// stop ends the writer of the previous attempt, if any.
func (b *videoBody) stop() {
	if b.pr == nil {
		return
	}
	_ = b.pr.CloseWithError(errUploadRestarted)
	<-b.done
	b.pr = nil
}

func (b *videoBody) build() (io.Reader, string, error) {
	b.stop()
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, "", errors.Wrap(err, "rewinding video file")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	b.pr, b.done = pr, make(chan struct{})

	go func() {
		defer close(b.done)
		err := b.write(mw)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, mw.FormDataContentType(), nil
}

func (b *videoBody) write(mw *multipart.Writer) error {
	if err := mw.WriteField("title", b.upload.Title); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", b.upload.Filename)
	if err != nil {
		return err
	}
	src := io.Reader(b.file)
	if b.progress != nil {
		src = &progressReader{r: b.file, total: b.upload.Size, fn: b.progress, last: -1}
	}
	_, err = io.Copy(part, src)
	return err
}

// progressReader reports the percentage of `total` read so far, each time it changes.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	last  int
	fn    ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)
	pct := 100
	if p.total > 0 && p.read < p.total {
		pct = int(p.read * 100 / p.total)
	}
	if pct != p.last {
		p.last = pct
		p.fn(pct)
	}
	return n, err
}
