package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cct-academy/course-portal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_CreateThenDetailRoundTrip(t *testing.T) {
	client, _ := newStore(t)
	svc := NewCatalogService(client)
	ctx := context.Background()

	in := CourseInput{Title: "Math 101", DurationHours: 10, Instructor: "Ana", Description: "Numbers"}
	created, err := svc.CreateCourse(ctx, in)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	detail, err := svc.CourseDetail(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Math 101", detail.Course.Title)
	assert.Equal(t, 10, detail.Course.DurationHours)
	assert.Equal(t, "Ana", detail.Course.Instructor)
	assert.Equal(t, "Numbers", detail.Course.Description)
	assert.True(t, detail.Course.IsPublished)
	assert.True(t, detail.Course.OffersCertificate)
	assert.Empty(t, detail.Modules)
	assert.NotNil(t, detail.Modules)
}

func TestCatalog_CourseDetailOrdersModulesAndLessons(t *testing.T) {
	client, srv := newStore(t)
	svc := NewCatalogService(client)

	srv.Seed("courses", map[string]interface{}{"id": 1, "title": "Go"})
	srv.Seed("modules",
		map[string]interface{}{"id": 11, "course_id": 1, "title": "Second", "order_index": 2},
		map[string]interface{}{"id": 10, "course_id": 1, "title": "First", "order_index": 1},
		map[string]interface{}{"id": 99, "course_id": 2, "title": "Other course", "order_index": 0},
	)
	srv.Seed("lessons",
		map[string]interface{}{"id": 101, "module_id": 10, "title": "B", "order_index": 2},
		map[string]interface{}{"id": 100, "module_id": 10, "title": "A", "order_index": 1},
		map[string]interface{}{"id": 110, "module_id": 11, "title": "C", "order_index": 1},
	)

	detail, err := svc.CourseDetail(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, detail.Modules, 2)
	assert.Equal(t, "First", detail.Modules[0].Title)
	assert.Equal(t, "Second", detail.Modules[1].Title)
	require.Len(t, detail.Modules[0].Lessons, 2)
	assert.Equal(t, "A", detail.Modules[0].Lessons[0].Title)
	assert.Equal(t, "B", detail.Modules[0].Lessons[1].Title)
	assert.Len(t, detail.Modules[1].Lessons, 1)
	assert.Equal(t, 3, srv.RESTCalls(http.MethodGet))
}

func TestCatalog_CourseDetailNotFound(t *testing.T) {
	client, _ := newStore(t)
	_, err := NewCatalogService(client).CourseDetail(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCatalog_ListCoursesCounts(t *testing.T) {
	client, srv := newStore(t)
	svc := NewCatalogService(client)

	seedCourse(srv, 1, 2, 3)
	seedCourse(srv, 2, 1, 1)
	srv.Seed("courses", map[string]interface{}{"id": 3, "title": "Draft", "is_published": false})

	courses, err := svc.ListCourses(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, courses, 2)

	counts := map[int64][2]int{}
	for _, c := range courses {
		counts[c.ID] = [2]int{c.ModulesCount, c.LessonsCount}
	}
	assert.Equal(t, [2]int{2, 6}, counts[1])
	assert.Equal(t, [2]int{1, 1}, counts[2])
	assert.Equal(t, 3, srv.RESTCalls(http.MethodGet))

	all, err := svc.ListCourses(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCatalog_ListCoursesEmpty(t *testing.T) {
	client, srv := newStore(t)
	courses, err := NewCatalogService(client).ListCourses(context.Background(), false)
	require.NoError(t, err)
	assert.NotNil(t, courses)
	assert.Empty(t, courses)
	assert.Equal(t, 1, srv.RESTCalls())
}

func TestCatalog_UpdateAndDeleteCourse(t *testing.T) {
	client, srv := newStore(t)
	svc := NewCatalogService(client)
	ctx := context.Background()
	srv.Seed("courses", map[string]interface{}{"id": 5, "title": "Old"})

	updated, err := svc.UpdateCourse(ctx, 5, CourseInput{Title: "New", IsPublished: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.False(t, updated.IsPublished)

	_, err = svc.UpdateCourse(ctx, 6, CourseInput{Title: "Missing"})
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, svc.DeleteCourse(ctx, 5))
	assert.Empty(t, srv.Rows("courses"))
}

func TestCatalog_FindByTitle(t *testing.T) {
	client, srv := newStore(t)
	svc := NewCatalogService(client)
	ctx := context.Background()
	srv.Seed("courses", map[string]interface{}{"id": 1, "title": "Rock & Roll"})
	srv.Seed("modules", map[string]interface{}{"id": 2, "course_id": 1, "title": "Intro"})
	srv.Seed("lessons", map[string]interface{}{"id": 3, "module_id": 2, "title": "Hello"})

	course, err := svc.FindCourseByTitle(ctx, "Rock & Roll")
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.Equal(t, int64(1), course.ID)

	course, err = svc.FindCourseByTitle(ctx, "Jazz")
	require.NoError(t, err)
	assert.Nil(t, course)

	module, err := svc.FindModuleByTitle(ctx, 1, "Intro")
	require.NoError(t, err)
	require.NotNil(t, module)

	module, err = svc.FindModuleByTitle(ctx, 9, "Intro")
	require.NoError(t, err)
	assert.Nil(t, module)

	lesson, err := svc.FindLessonByTitle(ctx, 2, "Hello")
	require.NoError(t, err)
	require.NotNil(t, lesson)
}

func TestCatalog_LessonCRUD(t *testing.T) {
	client, srv := newStore(t)
	svc := NewCatalogService(client)
	ctx := context.Background()

	_, err := svc.CreateLesson(ctx, LessonInput{Title: "No module"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	lesson, err := svc.CreateLesson(ctx, LessonInput{
		ModuleID:      4,
		Title:         "Intro",
		VideoProvider: model.VideoProviderYouTube,
		VideoID:       "abc",
		FreeTrial:     true,
		Attachments:   []model.Attachment{{Name: "notes.pdf", Size: 3, Type: "application/pdf", Data: "YWJj"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", lesson.VideoURL)
	assert.True(t, lesson.FreeTrial)
	require.Len(t, lesson.Attachments, 1)
	assert.Equal(t, "notes.pdf", lesson.Attachments[0].Name)

	updated, err := svc.UpdateLesson(ctx, lesson.ID, LessonInput{Title: "Intro 2", VideoProvider: model.VideoProviderVimeo, VideoID: "77"})
	require.NoError(t, err)
	assert.Equal(t, "https://vimeo.com/77", updated.VideoURL)
	assert.Equal(t, int64(4), updated.ModuleID)
	assert.Empty(t, updated.Attachments)

	require.NoError(t, svc.DeleteLesson(ctx, lesson.ID))
	assert.Empty(t, srv.Rows("lessons"))
}

func TestCatalog_ModuleCRUD(t *testing.T) {
	client, srv := newStore(t)
	svc := NewCatalogService(client)
	ctx := context.Background()

	_, err := svc.CreateModule(ctx, ModuleInput{Title: "No course"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	module, err := svc.CreateModule(ctx, ModuleInput{CourseID: 1, Title: "Basics", OrderIndex: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, module.OrderIndex)

	updated, err := svc.UpdateModule(ctx, module.ID, ModuleInput{Title: "Basics II", OrderIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, "Basics II", updated.Title)
	assert.Equal(t, int64(1), updated.CourseID)

	require.NoError(t, svc.DeleteModule(ctx, module.ID))
	assert.Empty(t, srv.Rows("modules"))
}
