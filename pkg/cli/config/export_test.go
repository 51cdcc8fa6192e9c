package config

func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

func NewAuthForTest(secret, jwksURL, audience, noAuth string) *Auth {
	return &Auth{
		secret:   secret,
		jwksURL:  jwksURL,
		audience: audience,
		noAuth:   noAuth,
	}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

func NewAppForTest(path string) *App {
	return &App{path: path}
}
