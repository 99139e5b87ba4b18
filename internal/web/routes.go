package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/user-aditi/face-attendance-system/internal/web/handlers"
)

func (s *Server) setupRoutes(embedder handlers.FaceEmbedder, imageDir string) {
	recognizeHandler := handlers.NewRecognizeHandler(s.service, embedder)
	galleryHandler := handlers.NewGalleryHandler(s.service, s.jobManager, imageDir)
	attendanceHandler := handlers.NewAttendanceHandler(s.service)
	studentsHandler := handlers.NewStudentsHandler(s.service)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// Live recognition
		r.Post("/recognize", recognizeHandler.Recognize)

		// Gallery inspection and rebuild
		r.Get("/gallery", galleryHandler.Get)
		r.Post("/gallery/rebuild", galleryHandler.Rebuild)
		r.Get("/gallery/rebuild/{jobId}", galleryHandler.RebuildStatus)

		// Attendance ledger
		r.Post("/attendance/reset", attendanceHandler.Reset)
		r.Get("/attendance", attendanceHandler.Events)

		// Roster
		r.Get("/students", studentsHandler.List)
		r.Post("/students", studentsHandler.Create)
		r.Get("/students/{id}", studentsHandler.Get)
		r.Delete("/students/{id}", studentsHandler.Delete)
	})
}
