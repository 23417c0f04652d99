package lms

import (
	"github.com/gosimple/slug"

	"github.com/trezcool/masomo-admin/core"
)

// NewCategory contains information needed to create a new Category.
type NewCategory struct {
	Name        string `json:"name" validate:"notblank,max=255"`
	Slug        string `json:"slug,omitempty" validate:"omitempty,max=255"`
	Description string `json:"description,omitempty"`
}

func (nc *NewCategory) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Slug = cleanSlug(nc.Slug, nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return core.ValidateStruct(nc)
}

// UpdateCategory defines what information may be provided to modify an existing Category.
type UpdateCategory struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	Slug        *string `json:"slug,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty"`
}

func (uc *UpdateCategory) Validate() error {
	cleanPtr(uc.Name)
	cleanPtr(uc.Description)
	if uc.Slug != nil {
		*uc.Slug = slug.Make(*uc.Slug)
	}
	return core.ValidateStruct(uc)
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"notblank,max=255"`
	Slug        string `json:"slug,omitempty" validate:"omitempty,max=255"`
	Description string `json:"description,omitempty"`
	Category    int    `json:"category" validate:"gt=0"`
	IsPublished bool   `json:"is_published"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Slug = cleanSlug(nc.Slug, nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return core.ValidateStruct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,notblank,max=255"`
	Slug        *string `json:"slug,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty"`
	Category    *int    `json:"category,omitempty" validate:"omitempty,gt=0"`
	IsPublished *bool   `json:"is_published,omitempty"`
}

func (uc *UpdateCourse) Validate() error {
	cleanPtr(uc.Title)
	cleanPtr(uc.Description)
	if uc.Slug != nil {
		*uc.Slug = slug.Make(*uc.Slug)
	}
	return core.ValidateStruct(uc)
}

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	Title       string `json:"title" validate:"notblank,max=255"`
	Description string `json:"description,omitempty"`
	Course      int    `json:"course" validate:"gt=0"`
	Order       int    `json:"order" validate:"gte=0"`
}

func (nl *NewLesson) Validate() error {
	nl.Title = core.CleanString(nl.Title)
	nl.Description = core.CleanString(nl.Description)
	return core.ValidateStruct(nl)
}

// UpdateLesson defines what information may be provided to modify an existing Lesson.
type UpdateLesson struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,notblank,max=255"`
	Description *string `json:"description,omitempty"`
	Course      *int    `json:"course,omitempty" validate:"omitempty,gt=0"`
	Order       *int    `json:"order,omitempty" validate:"omitempty,gte=0"`
}

func (ul *UpdateLesson) Validate() error {
	cleanPtr(ul.Title)
	cleanPtr(ul.Description)
	return core.ValidateStruct(ul)
}

type SignIn struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (si *SignIn) Validate() error {
	si.Email = core.CleanString(si.Email, true /* lower */)
	return core.ValidateStruct(si)
}

type ForgotPassword struct {
	Email string `json:"email" validate:"required,email"`
}

func (fp *ForgotPassword) Validate() error {
	fp.Email = core.CleanString(fp.Email, true /* lower */)
	return core.ValidateStruct(fp)
}

type ResetPassword struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp ResetPassword) Validate() error { return core.ValidateStruct(rp) }

// VideoUpload describes a video file to upload.
type VideoUpload struct {
	Title    string `json:"title" validate:"notblank,max=255"`
	Filename string `json:"filename" validate:"notblank"`
	Size     int64  `json:"size" validate:"gt=0"`
}

func (vu *VideoUpload) Validate() error {
	vu.Title = core.CleanString(vu.Title)
	return core.ValidateStruct(vu)
}

func cleanSlug(s, fallback string) string {
	if s = core.CleanString(s); s == "" {
		s = fallback
	}
	return slug.Make(s)
}

func cleanPtr(s *string) {
	if s != nil {
		*s = core.CleanString(*s)
	}
}
