package service

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/richtext"
	"github.com/spec-kit/servicedesk/internal/storage"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

func upload(name, body string) UploadInput {
	return UploadInput{Filename: name, ContentType: "text/plain", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestUploadAndDownload(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "disk")
	id := ticket.Ticket.ID

	attachment, err := f.attachments.Upload(f.ctx, f.requester, id, upload("trace.log", "trace"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(attachment.Key, "uploads/R001/"))
	assert.True(t, strings.HasSuffix(attachment.Key, ".log"))
	assert.Equal(t, int64(5), attachment.Size)

	meta, rc, err := f.attachments.Download(f.ctx, f.requester, attachment.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "trace", string(data))
	assert.Equal(t, "trace.log", meta.Filename)

	_, _, err = f.attachments.Download(f.ctx, f.other, attachment.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	internal := upload("notes.txt", "staff only")
	internal.IsInternal = true
	_, err = f.attachments.Upload(f.ctx, f.requester, id, internal)
	requireCode(t, err, apperrors.CodeForbidden)

	internal = upload("notes.txt", "staff only")
	internal.IsInternal = true
	hidden, err := f.attachments.Upload(f.ctx, f.staff, id, internal)
	require.NoError(t, err)
	_, _, err = f.attachments.Download(f.ctx, f.requester, hidden.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	visible, err := f.attachments.List(f.ctx, f.requester, id, "")
	require.NoError(t, err)
	assert.Len(t, visible, 1)
	all, err := f.attachments.List(f.ctx, f.staff, id, "all")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUploadPolicyViolations(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "disk")

	_, err := f.attachments.Upload(f.ctx, f.requester, ticket.Ticket.ID, upload("run.sh", "echo"))
	requireReason(t, err, "FILE_TYPE_DENIED")

	big := bytes.Repeat([]byte("x"), 2048)
	_, err = f.attachments.Upload(f.ctx, f.requester, ticket.Ticket.ID, UploadInput{Filename: "big.bin", Body: bytes.NewReader(big)})
	requireReason(t, err, "FILE_TOO_LARGE")

	_, err = f.attachments.Upload(f.ctx, f.other, ticket.Ticket.ID, upload("a.txt", "a"))
	requireCode(t, err, apperrors.CodeForbidden)

	list, err := f.store.Attachments().ListByTicket(f.ctx, ticket.Ticket.ID, true)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRegisterUploadedObject(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "disk")

	object, err := f.attachments.Store(f.ctx, f.requester, "shot.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)

	foreign, err := f.attachments.Store(f.ctx, f.other, "shot.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)
	_, err = f.attachments.Register(f.ctx, f.requester, ticket.Ticket.ID, AttachmentRegisterInput{Key: foreign.Key, Filename: "shot.png", Size: 3})
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = f.attachments.Register(f.ctx, f.requester, ticket.Ticket.ID, AttachmentRegisterInput{Key: storage.KeyPrefix("R001") + "missing.png", Filename: "x.png"})
	requireCode(t, err, apperrors.CodeNotFound)

	attachment, err := f.attachments.Register(f.ctx, f.requester, ticket.Ticket.ID, AttachmentRegisterInput{
		Key:      object.Key,
		Filename: object.Filename,
		Size:     object.Size,
	})
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", attachment.ContentType)
	assert.Equal(t, ticket.Ticket.ID, *attachment.TicketID)
}

func TestDeleteAttachment(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "disk")
	attachment, err := f.attachments.Upload(f.ctx, f.requester, ticket.Ticket.ID, upload("a.txt", "a"))
	require.NoError(t, err)

	err = f.attachments.Delete(f.ctx, f.requester, attachment.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	require.NoError(t, f.attachments.Delete(f.ctx, f.staff, attachment.ID))
	_, err = f.files.Open(f.ctx, attachment.Key)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	err = f.attachments.Delete(f.ctx, f.staff, attachment.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestNoticeAttachments(t *testing.T) {
	f := newFixture(t)
	notice, err := f.knowledge.Create(f.ctx, f.staff, "notice", KnowledgeInput{Title: "Maintenance", Body: richtext.Paragraph("Saturday")})
	require.NoError(t, err)

	_, err = f.attachments.UploadNoticeFile(f.ctx, f.requester, notice.Item.ID, upload("plan.txt", "plan"))
	requireCode(t, err, apperrors.CodeForbidden)

	attachment, err := f.attachments.UploadNoticeFile(f.ctx, f.staff, notice.Item.ID, upload("plan.txt", "plan"))
	require.NoError(t, err)

	_, rc, err := f.attachments.Download(f.ctx, f.other, attachment.ID)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	require.NoError(t, f.knowledge.Delete(f.ctx, f.staff, "notice", notice.Item.ID))
	_, err = f.files.Open(f.ctx, attachment.Key)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	files, err := f.attachments.ListNoticeFiles(f.ctx, notice.Item.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRegisterRejectsTraversalIntoForeignObject(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "disk")

	secret, err := f.attachments.Store(f.ctx, f.other, "secret.txt", "text/plain", 6, strings.NewReader("secret"))
	require.NoError(t, err)
	rest := strings.TrimPrefix(secret.Key, storage.KeyPrefix(f.other.EmployeeNo))
	sneaky := storage.KeyPrefix(f.requester.EmployeeNo) + "../" + f.other.EmployeeNo + "/" + rest

	_, err = f.attachments.Register(f.ctx, f.requester, ticket.Ticket.ID, AttachmentRegisterInput{
		Key:      sneaky,
		Filename: "secret.txt",
		Size:     6,
	})
	requireCode(t, err, apperrors.CodeValidationFailed)

	list, err := f.store.Attachments().ListByTicket(f.ctx, ticket.Ticket.ID, true)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRegisterRejectsAlreadyBoundObject(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "disk")
	second := f.createTicket(f.requester, "printer")

	object, err := f.attachments.Store(f.ctx, f.requester, "shot.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)
	input := AttachmentRegisterInput{Key: object.Key, Filename: object.Filename, Size: object.Size}

	_, err = f.attachments.Register(f.ctx, f.requester, ticket.Ticket.ID, input)
	require.NoError(t, err)
	_, err = f.attachments.Register(f.ctx, f.requester, second.Ticket.ID, input)
	requireReason(t, err, ReasonObjectRegistered)

	list, err := f.store.Attachments().ListByTicket(f.ctx, second.Ticket.ID, true)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAttachmentCommentReference(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "disk")
	other := f.createTicket(f.requester, "printer")

	foreign, err := f.comments.Create(f.ctx, f.requester, other.Ticket.ID, CommentInput{Body: richtext.Paragraph("on the printer")})
	require.NoError(t, err)
	own, err := f.comments.Create(f.ctx, f.requester, ticket.Ticket.ID, CommentInput{Body: richtext.Paragraph("on the disk")})
	require.NoError(t, err)

	input := upload("a.txt", "a")
	input.CommentID = &foreign.Comment.ID
	_, err = f.attachments.Upload(f.ctx, f.requester, ticket.Ticket.ID, input)
	requireReason(t, err, ReasonInvalidComment)

	missing := int64(999)
	input = upload("a.txt", "a")
	input.CommentID = &missing
	_, err = f.attachments.Upload(f.ctx, f.requester, ticket.Ticket.ID, input)
	requireReason(t, err, ReasonInvalidComment)

	object, err := f.attachments.Store(f.ctx, f.requester, "b.txt", "text/plain", 1, strings.NewReader("b"))
	require.NoError(t, err)
	_, err = f.attachments.Register(f.ctx, f.requester, ticket.Ticket.ID, AttachmentRegisterInput{
		Key:       object.Key,
		Filename:  object.Filename,
		Size:      object.Size,
		CommentID: &foreign.Comment.ID,
	})
	requireReason(t, err, ReasonInvalidComment)

	list, err := f.store.Attachments().ListByTicket(f.ctx, ticket.Ticket.ID, true)
	require.NoError(t, err)
	assert.Empty(t, list)

	input = upload("a.txt", "a")
	input.CommentID = &own.Comment.ID
	attachment, err := f.attachments.Upload(f.ctx, f.requester, ticket.Ticket.ID, input)
	require.NoError(t, err)
	assert.Equal(t, own.Comment.ID, *attachment.CommentID)
}
