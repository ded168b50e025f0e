// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package moodle

// SiteInfo is the core_webservice_get_site_info result.
type SiteInfo struct {
	SiteName  string         `json:"sitename"`
	UserName  string         `json:"username"`
	FullName  string         `json:"fullname"`
	UserID    int            `json:"userid"`
	SiteURL   string         `json:"siteurl"`
	Release   string         `json:"release"`
	Version   string         `json:"version"`
	Functions []SiteFunction `json:"functions"`
}

// SiteFunction is a web service function enabled for the token.
type SiteFunction struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Course is a Moodle course record.
type Course struct {
	ID           int    `json:"id"`
	ShortName    string `json:"shortname"`
	FullName     string `json:"fullname"`
	DisplayName  string `json:"displayname,omitempty"`
	Summary      string `json:"summary"`
	CategoryID   int    `json:"categoryid"`
	CategoryName string `json:"categoryname,omitempty"`
	Visible      int    `json:"visible"`
	Format       string `json:"format,omitempty"`
	StartDate    int64  `json:"startdate,omitempty"`
	EndDate      int64  `json:"enddate,omitempty"`
}

// NewCourse is the input for CreateCourse.
type NewCourse struct {
	FullName   string `json:"fullname" validate:"required,max=254"`
	ShortName  string `json:"shortname" validate:"required,max=255"`
	CategoryID int    `json:"categoryid" validate:"required,min=1"`
	Summary    string `json:"summary,omitempty"`
	IDNumber   string `json:"idnumber,omitempty"`
	Format     string `json:"format,omitempty"`
	Visible    *bool  `json:"visible,omitempty"`
	StartDate  int64  `json:"startdate,omitempty" validate:"omitempty,min=0"`
	EndDate    int64  `json:"enddate,omitempty" validate:"omitempty,min=0"`
}

// CourseUpdate is the input for UpdateCourse. Empty fields are left unchanged.
type CourseUpdate struct {
	ID         int    `json:"id" validate:"required,min=1"`
	FullName   string `json:"fullname,omitempty" validate:"omitempty,max=254"`
	ShortName  string `json:"shortname,omitempty" validate:"omitempty,max=255"`
	CategoryID int    `json:"categoryid,omitempty" validate:"omitempty,min=1"`
	Summary    string `json:"summary,omitempty"`
	Visible    *bool  `json:"visible,omitempty"`
}

// Enrolment is one manual enrolment.
type Enrolment struct {
	RoleID    int   `json:"roleid" validate:"required,min=1"`
	UserID    int   `json:"userid" validate:"required,min=1"`
	CourseID  int   `json:"courseid" validate:"required,min=1"`
	TimeStart int64 `json:"timestart,omitempty"`
	TimeEnd   int64 `json:"timeend,omitempty"`
	Suspend   *bool `json:"suspend,omitempty"`
}

// User is a core_user_get_users_by_field record.
type User struct {
	ID        int    `json:"id"`
	UserName  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	FullName  string `json:"fullname"`
	Email     string `json:"email"`
}

// Notification is a popup notification.
type Notification struct {
	ID               int    `json:"id"`
	UserIDFrom       int    `json:"useridfrom"`
	UserIDTo         int    `json:"useridto"`
	Subject          string `json:"subject"`
	ShortenedSubject string `json:"shortenedsubject,omitempty"`
	Text             string `json:"text"`
	FullMessage      string `json:"fullmessage,omitempty"`
	ContextURL       string `json:"contexturl,omitempty"`
	TimeCreated      int64  `json:"timecreated"`
	Read             bool   `json:"read"`
	Component        string `json:"component,omitempty"`
}

// Notifications is a page of popup notifications.
type Notifications struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadcount"`
}

// Section is one course section from core_course_get_contents.
type Section struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Visible int      `json:"visible"`
	Summary string   `json:"summary"`
	Section int      `json:"section"`
	Modules []Module `json:"modules"`
}

// Module is a course module (activity or resource).
type Module struct {
	ID       int    `json:"id"`
	URL      string `json:"url,omitempty"`
	Name     string `json:"name"`
	Instance int    `json:"instance"`
	ModName  string `json:"modname"`
	Visible  int    `json:"visible"`
}

// Category is a course category.
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Parent      int    `json:"parent"`
	CourseCount int    `json:"coursecount"`
	Path        string `json:"path"`
}

// Warning is a non-fatal problem reported alongside a result.
type Warning struct {
	Item        string `json:"item,omitempty"`
	ItemID      int    `json:"itemid,omitempty"`
	WarningCode string `json:"warningcode"`
	Message     string `json:"message"`
}

// UploadedFile is one entry of the webservice/upload.php response.
type UploadedFile struct {
	Component string `json:"component"`
	ContextID int    `json:"contextid"`
	UserID    int    `json:"userid"`
	FileArea  string `json:"filearea"`
	FileName  string `json:"filename"`
	FilePath  string `json:"filepath"`
	ItemID    int    `json:"itemid"`
}

// UploadOptions places a file upload. Zero values use the user draft area.
type UploadOptions struct {
	ContextID int
	Component string
	FileArea  string
	ItemID    int
	MimeType  string
}

// Resource is the result of adding a module to a course.
type Resource struct {
	ID       int       `json:"id"`
	Warnings []Warning `json:"warnings,omitempty"`
}
