package siga

import (
	"context"
)

const report_profile_extract = "profile.extract"

const (
	selector_profile_name     = "#span_MPW0041vPRO_PESSOALNOME"
	selector_profile_ra       = "#span_MPW0041vACD_ALUNOCURSOREGISTROACADEMICOCURSO"
	selector_profile_semester = "#span_MPW0041vACD_ALUNOCURSOCICLOATUAL"
	selector_profile_email    = "#span_MPW0041vINSTITUCIONALFATEC"
	selector_profile_image    = "#MPW0041FOTO > img"
)

// ExtractProfile reads the student's profile from the page the login landed
// on. Every field must be present, an invalid semester is returned as NaN.
func (s Scraper) ExtractProfile(ctx context.Context, page Page) (User, error) {
	ctx, span := tracer.Start(ctx, "ExtractProfile")
	defer span.End()

	find := func(field, selector string) (Element, error) {
		el, err := page.WaitFor(ctx, selector, s.opts.WaitTimeout)
		if err != nil {
			s.tel.ReportBroken(report_profile_extract, err, field, page.URL())
			return nil, extractionError("profile", err, "field %s (%s)", field, selector)
		}
		return el, nil
	}
	text := func(field, selector string) (string, error) {
		el, err := find(field, selector)
		if err != nil {
			return "", err
		}
		value, err := page.Text(ctx, el)
		if err != nil {
			return "", extractionError("profile", err, "read field %s", field)
		}
		return value, nil
	}

	imageEl, err := find("image", selector_profile_image)
	if err != nil {
		return User{}, err
	}
	image, err := page.Attr(ctx, imageEl, "src")
	if err != nil {
		return User{}, extractionError("profile", err, "read field image")
	}

	ra, err := text("RA", selector_profile_ra)
	if err != nil {
		return User{}, err
	}
	name, err := text("name", selector_profile_name)
	if err != nil {
		return User{}, err
	}
	semesterText, err := text("semester", selector_profile_semester)
	if err != nil {
		return User{}, err
	}
	email, err := text("email", selector_profile_email)
	if err != nil {
		return User{}, err
	}

	semester := ParseSemester(semesterText)
	if semester.IsNaN() {
		s.tel.ReportWarning(report_profile_extract, "semester is not a number", semesterText)
	}

	return User{
		RA:       ra,
		Name:     name,
		Semester: semester,
		Email:    email,
		Image:    image,
	}, nil
}
