package prompt

import "strings"

// SystemPrompt is sent as the system message by chat-style providers
const SystemPrompt = "You are a web application generator. You answer with complete, working HTML, CSS and JavaScript files."

const ideaMarker = "{APP_IDEA}"

const appTemplate = `
**Objective:** Create a fully functional web app prototype based on the following high-level idea. Generate all necessary code files for 4-5 core screens with modern UI/UX design (Apple-inspired minimalist aesthetic), working navigation, and populated dummy data.

**App Idea:**
{APP_IDEA}

**Output Requirements:**

1. **Complete Code Generation:**
   * HTML for ALL core screens (4-5 screens total)
   * Full CSS styling with responsive design (mobile-first)
   * JavaScript for navigation between screens and core functionality
   * Working interactive elements and state management

2. **Technical Specifications:**
   * Use vanilla HTML, CSS and JavaScript that runs directly in a browser
   * Implement responsive design
   * Include dark/light mode if appropriate
   * Ensure accessibility: semantic markup, labels, keyboard navigation and sufficient contrast

3. **Data & Functionality:**
   * Create data structures that fit the app concept
   * Generate realistic dummy data
   * Implement the core user flows and interactions

4. **Output Format:**
   * Return exactly one fenced code block per file
   * Tag the blocks with their language: ` + "```html" + `, ` + "```css" + ` and ` + "```javascript" + `
   * The HTML must load styles.css and app.js

The final output should be ready-to-use code that runs with minimal modifications.
`

// Build returns the complete generation prompt for idea.
// The idea is inserted verbatim; no validation happens here.
func Build(idea string) string {
	return strings.Replace(appTemplate, ideaMarker, idea, 1)
}
