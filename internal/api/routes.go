package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	s.router.GET("/ws", s.streamHandler.LiveStream)

	incidents := s.router.Group("/incidents")
	{
		incidents.GET("/hotspots", s.incidentsHandler.GetHotspots)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}
}
