package llm

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// MockName is the provider name reported by MockProvider
const MockName = "mock"

// MockProvider synthesizes a deterministic three-file app without any network
// call. It backs explicit mock mode and the fallback after transport failures.
type MockProvider struct{}

// Name returns the provider name
func (MockProvider) Name() string {
	return MockName
}

// Invoke renders the placeholder app as a completion with one fenced block per file
func (MockProvider) Invoke(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Here is a starter version of your app.\n\n")
	writeBlock(&sb, "html", mockHTML(req.Idea, req.ServiceName, req.ModelName))
	writeBlock(&sb, "css", mockCSS)
	writeBlock(&sb, "javascript", mockJS)
	return sb.String(), nil
}

func writeBlock(sb *strings.Builder, lang, body string) {
	fmt.Fprintf(sb, "```%s\n%s\n```\n\n", lang, body)
}

func mockHTML(idea, serviceName, modelName string) string {
	return fmt.Sprintf(mockHTMLTemplate,
		escapeText(idea),
		escapeText(serviceName),
		escapeText(modelName),
	)
}

// escapeText makes s safe inside HTML text and inside a fenced block
func escapeText(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "`", "&#96;")
}

const mockHTMLTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Generated App</title>
    <link rel="stylesheet" href="styles.css">
</head>
<body>
    <header>
        <nav aria-label="Main">
            <div class="logo">App</div>
            <ul>
                <li><a href="#" class="active">Home</a></li>
                <li><a href="#">Features</a></li>
                <li><a href="#">About</a></li>
                <li><a href="#">Contact</a></li>
            </ul>
        </nav>
    </header>

    <main>
        <section class="hero">
            <h1>Welcome to Your App</h1>
            <p>Based on your idea: "%s"</p>
            <p class="generator">Generated with %s (%s)</p>
            <button class="btn primary">Get Started</button>
        </section>

        <section class="features">
            <h2>Features</h2>
            <div class="feature-grid">
                <div class="feature-card">
                    <h3>Feature 1</h3>
                    <p>Description of this amazing feature</p>
                </div>
                <div class="feature-card">
                    <h3>Feature 2</h3>
                    <p>Description of this amazing feature</p>
                </div>
                <div class="feature-card">
                    <h3>Feature 3</h3>
                    <p>Description of this amazing feature</p>
                </div>
            </div>
        </section>
    </main>

    <footer>
        <p>&copy; Generated App. All rights reserved.</p>
    </footer>

    <script src="app.js"></script>
</body>
</html>`

const mockCSS = `* {
    margin: 0;
    padding: 0;
    box-sizing: border-box;
}

body {
    font-family: 'SF Pro Text', -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', sans-serif;
    line-height: 1.6;
    color: #333;
}

nav {
    display: flex;
    justify-content: space-between;
    align-items: center;
    padding: 1rem 2rem;
    background-color: #fff;
    box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);
}

.logo {
    font-size: 1.5rem;
    font-weight: bold;
    color: #0070f3;
}

nav ul {
    display: flex;
    list-style: none;
}

nav ul li {
    margin-left: 2rem;
}

nav ul li a {
    text-decoration: none;
    color: #666;
    font-weight: 500;
    transition: color 0.3s ease;
}

nav ul li a:hover, nav ul li a.active {
    color: #0070f3;
}

.hero {
    padding: 6rem 2rem;
    text-align: center;
    background-color: #f9fafb;
}

.hero h1 {
    font-size: 3rem;
    margin-bottom: 1rem;
    color: #111;
}

.hero p {
    font-size: 1.25rem;
    max-width: 800px;
    margin: 0 auto 2rem;
    color: #666;
}

.btn {
    display: inline-block;
    padding: 0.75rem 1.5rem;
    border-radius: 0.375rem;
    font-weight: 500;
    cursor: pointer;
    border: none;
    font-size: 1rem;
}

.primary {
    background-color: #0070f3;
    color: white;
}

.primary:hover {
    background-color: #005dd1;
}

.features {
    padding: 4rem 2rem;
}

.features h2 {
    text-align: center;
    font-size: 2rem;
    margin-bottom: 3rem;
}

.feature-grid {
    display: grid;
    grid-template-columns: repeat(auto-fit, minmax(300px, 1fr));
    gap: 2rem;
    max-width: 1200px;
    margin: 0 auto;
}

.feature-card {
    background-color: white;
    border-radius: 0.5rem;
    padding: 2rem;
    box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1);
    transition: transform 0.3s ease, box-shadow 0.3s ease;
}

footer {
    padding: 2rem;
    text-align: center;
    background-color: #f9fafb;
    border-top: 1px solid #eaeaea;
}

@media (max-width: 768px) {
    nav {
        flex-direction: column;
        padding: 1rem;
    }

    .hero {
        padding: 4rem 1rem;
    }

    .hero h1 {
        font-size: 2rem;
    }
}`

const mockJS = `document.addEventListener('DOMContentLoaded', function() {
    const getStartedBtn = document.querySelector('.btn.primary');
    if (getStartedBtn) {
        getStartedBtn.addEventListener('click', function() {
            alert('Welcome! This is a placeholder for your app functionality.');
        });
    }

    const navLinks = document.querySelectorAll('nav ul li a');
    navLinks.forEach(function(link) {
        link.addEventListener('click', function(e) {
            navLinks.forEach(function(navLink) {
                navLink.classList.remove('active');
            });
            this.classList.add('active');
            e.preventDefault();
        });
    });

    console.log('App initialized successfully!');
});`
