package app

// SetCodeGenerator replaces the session code source.
func (s *QuizService) SetCodeGenerator(fn func(n int) (string, error)) {
	s.codes = fn
}
