// Package e2e runs the crawl, index and retrieval path over a fake site of topic pages
// and downloadable documents, then checks that each query finds its topic.
package e2e

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hyperjump/yomu/internal/testutil"
)

// Page is one published topic: an HTML page or a downloadable document.
type Page struct {
	Slug    string
	Title   string
	Content string
	// Ext is the document extension; empty for HTML pages.
	Ext string
}

// Path is the site path the page is served at.
func (p Page) Path() string {
	if p.Ext == "" {
		return "/study/" + p.Slug
	}
	return "/files/" + p.Slug + p.Ext
}

// QueryTestCase is a question and the path that must appear in its results.
type QueryTestCase struct {
	Query        string
	ExpectedPath string
	Description  string
}

// Corpus holds the published pages and the query test cases against them.
type Corpus struct {
	Pages     []Page
	TestCases []QueryTestCase
}

type topic struct {
	title   string
	content string
}

var topics = []topic{
	{"Python Guide", "Python is a high-level programming language. Python programming language is used for web development and data science."},
	{"Kubernetes Docs", "Kubernetes is an open-source container orchestration platform. Kubernetes container orchestration automates deployment and scaling."},
	{"React Tutorial", "React is a JavaScript library. React hooks and components enable building user interfaces."},
	{"Go Language", "Go is a statically typed language. Go golang concurrency is achieved with goroutines and channels."},
	{"PostgreSQL Manual", "PostgreSQL is an advanced relational database. PostgreSQL relational database supports JSON and full-text search."},
	{"Docker Handbook", "Docker enables building and shipping applications. Docker container images are portable across environments."},
	{"Machine Learning", "Machine learning is a subset of AI. Machine learning algorithms learn patterns from data."},
	{"Neural Networks", "Neural networks are inspired by the brain. Neural network deep learning powers modern AI."},
	{"REST API Design", "REST is an architectural style for APIs. REST API endpoints use HTTP methods and status codes."},
	{"GraphQL Overview", "GraphQL is a query language for APIs. GraphQL query language lets clients request exactly what they need."},
	{"TypeScript Handbook", "TypeScript adds static types to JavaScript. TypeScript type system catches errors at compile time."},
	{"Redis Cache", "Redis is an in-memory data store. Redis in-memory cache is used for sessions and caching."},
	{"Elasticsearch Guide", "Elasticsearch is a search and analytics engine. Elasticsearch full-text search scales horizontally."},
	{"AWS Lambda", "AWS Lambda runs code without servers. AWS Lambda serverless scales automatically."},
	{"Terraform IaC", "Terraform manages cloud infrastructure. Terraform infrastructure as code is declarative."},
	{"Prometheus Metrics", "Prometheus is a monitoring system. Prometheus monitoring metrics are time-series based."},
	{"gRPC Overview", "gRPC is a high-performance RPC framework. gRPC remote procedure calls use HTTP/2 and protobuf."},
	{"OAuth 2.0", "OAuth 2.0 is an authorization framework. OAuth 2.0 authorization enables secure delegated access."},
	{"JWT Tokens", "JWT is a compact token format. JWT JSON web tokens are used for authentication."},
	{"CI/CD Pipelines", "CI/CD automates build and deployment. CI/CD continuous integration runs tests on every commit."},
	{"Git Workflow", "Git is a distributed version control system. Git version control tracks changes in source code."},
	{"SQL Basics", "SQL is used to manage relational data. SQL structured query language has SELECT INSERT UPDATE DELETE."},
	{"Microservices", "Microservices split an app into small services. Microservices architecture enables independent deployment."},
	{"Kafka Streams", "Apache Kafka is a distributed event stream platform. Apache Kafka streaming handles high throughput."},
	{"Nginx Config", "Nginx is a web server and reverse proxy. Nginx reverse proxy balances load and serves static files."},
	{"OOP Principles", "OOP organizes code around objects. Object-oriented programming uses encapsulation and inheritance."},
	{"Functional Programming", "Functional programming treats computation as functions. Functional programming paradigm avoids mutable state."},
	{"Design Patterns", "Design patterns are reusable solutions. Design patterns software includes Singleton and Factory."},
	{"API Versioning", "API versioning allows backward compatibility. API versioning strategy can use URL or headers."},
	{"Database Indexing", "Indexes speed up queries. Database indexing performance is critical for large tables."},
	{"Cryptography Basics", "Cryptography secures data. Cryptography encryption decryption uses keys and algorithms."},
	{"HTTPS TLS", "HTTPS encrypts web traffic. HTTPS TLS SSL certificates verify identity."},
	{"Load Balancing", "Load balancers distribute traffic. Load balancing high availability prevents single points of failure."},
	{"Caching Strategies", "Caching improves performance. Caching strategy cache invalidation must be designed carefully."},
	{"Event Sourcing", "Event sourcing stores state as events. Event sourcing CQRS separates read and write models."},
	{"Domain-Driven Design", "DDD focuses on the business domain. Domain-driven design DDD uses aggregates and bounded contexts."},
	{"Agile Scrum", "Agile is an iterative approach. Agile Scrum sprint typically lasts two weeks."},
	{"Unit Testing", "Unit tests verify small units of code. Unit testing mock isolates dependencies."},
	{"Integration Testing", "Integration tests verify components together. Integration testing E2E validates full flows."},
	{"Dependency Injection", "DI provides dependencies from outside. Dependency injection DI improves testability."},
	{"Semantic Search", "Semantic search uses meaning not just keywords. Semantic search embeddings capture context."},
	{"Keyword Search", "Keyword search matches terms. Keyword search full-text uses inverted indexes."},
	{"Hybrid Search", "Hybrid combines keyword and semantic. Hybrid search fusion improves recall."},
	{"Vector Database", "Vector DBs store embeddings. Vector database similarity uses cosine or dot product."},
	{"Embedding Models", "Embeddings represent text as vectors. Embedding models sentence transform text to dense vectors."},
	{"Chunking Strategy", "Chunking splits long documents. Chunking strategy overlap preserves context."},
	{"RAG Overview", "RAG combines retrieval and generation. RAG retrieval augmented grounds LLMs in documents."},
	{"LLM Fine-tuning", "Fine-tuning adapts pre-trained models. LLM fine-tuning training requires labeled data."},
	{"Prompt Engineering", "Prompts guide model behavior. Prompt engineering few-shot uses examples in the prompt."},
	{"OpenAPI Spec", "OpenAPI describes REST APIs. OpenAPI specification is machine-readable."},
	{"WebSocket Protocol", "WebSockets enable bidirectional communication. WebSocket real-time is used for chat and live updates."},
	{"Message Queue", "Message queues decouple producers and consumers. Message queue asynchronous enables scaling."},
	{"Rate Limiting", "Rate limiting protects APIs. Rate limiting throttling can be per-user or global."},
	{"Circuit Breaker", "Circuit breaker stops cascading failures. Circuit breaker resilience pattern fails fast."},
	{"Feature Flags", "Feature flags toggle functionality. Feature flags rollout allows gradual release."},
	{"A/B Testing", "A/B testing compares variants. A/B testing experiment uses statistical significance."},
	{"Logging Best Practices", "Structured logging aids debugging. Logging structured logs use JSON or key-value."},
	{"Distributed Tracing", "Tracing follows requests across services. Distributed tracing spans show latency breakdown."},
	{"Security Headers", "Security headers protect browsers. Security headers CORS control cross-origin requests."},
	{"Input Validation", "Validation rejects bad input. Input validation sanitization prevents injection."},
	{"Password Hashing", "Passwords must be hashed. Password hashing bcrypt is resistant to rainbow tables."},
	{"RBAC Permissions", "RBAC assigns permissions by role. RBAC role-based access control is common in enterprise."},
	{"Audit Logging", "Audit logs record who did what. Audit logging compliance is required in regulated industries."},
	{"Backup Strategy", "Backups protect against data loss. Backup strategy recovery includes RTO and RPO."},
	{"Disaster Recovery", "DR plans restore after outages. Disaster recovery DR involves failover and runbooks."},
	{"Scaling Horizontal", "Horizontal scaling adds more nodes. Horizontal scaling sharding partitions data."},
	{"Vertical Scaling", "Vertical scaling adds CPU or memory. Vertical scaling resources have limits."},
	{"Cost Optimization", "Cloud costs can grow quickly. Cost optimization cloud uses reserved instances and spot."},
	{"Green Computing", "Green computing reduces environmental impact. Green computing sustainability focuses on efficiency."},
	{"Accessibility", "Accessibility ensures inclusive design. Accessibility WCAG provides guidelines."},
	{"Internationalization", "i18n supports multiple languages. Internationalization i18n covers locale and formatting."},
	{"Mobile First", "Mobile first designs for small screens first. Mobile first responsive adapts to viewport."},
	{"Progressive Web App", "PWAs work offline. Progressive web app PWA uses service workers."},
	{"Server-Side Rendering", "SSR renders HTML on the server. Server-side rendering SSR improves SEO."},
	{"Static Site Generation", "SSG pre-renders pages at build time. Static site generation SSG is fast and cheap."},
	{"Edge Computing", "Edge runs code close to users. Edge computing latency reduces round-trip time."},
	{"Serverless Cold Start", "Cold start is the first request delay. Serverless cold start can be mitigated with provisioned concurrency."},
	{"Graph Database", "Graph DBs store nodes and edges. Graph database Neo4j is used for relationships."},
	{"Time-Series DB", "Time-series DBs optimize for metrics. Time-series database stores values by timestamp."},
	{"Document Store", "Document stores use flexible schemas. Document store MongoDB stores BSON documents."},
	{"Key-Value Store", "Key-value stores are simple and fast. Key-value store is used for caching and sessions."},
	{"CAP Theorem", "CAP says you cannot have all three. CAP theorem consistency availability partition tolerance."},
	{"ACID Transactions", "ACID guarantees reliability. ACID transactions database ensure atomicity and isolation."},
	{"Eventually Consistent", "Eventually consistent systems converge. Eventually consistent is used in distributed systems."},
	{"CRDT Overview", "CRDTs enable conflict-free replication. CRDT conflict-free replicated data types merge without coordination."},
	{"Zero Trust", "Zero trust assumes breach. Zero trust security verifies every request."},
	{"Defense in Depth", "Multiple layers improve security. Defense in depth layers include network app and data."},
	{"Penetration Testing", "Pentest simulates attacks. Penetration testing pentest finds vulnerabilities."},
	{"Code Review", "Code review catches bugs early. Code review pull request is a best practice."},
	{"Documentation", "Good documentation helps adoption. Documentation API docs should be up to date."},
	{"Onboarding Guide", "Onboarding helps new team members. Onboarding guide new hires covers setup and culture."},
	{"Incident Response", "Incidents need a clear process. Incident response runbook defines steps."},
	{"Post-Mortem", "Post-mortems learn from incidents. Post-mortem blameless focuses on systems not people."},
	{"SLO and SLI", "SLOs define target reliability. SLO SLI reliability uses error budget."},
	{"Chaos Engineering", "Chaos engineering tests resilience. Chaos engineering resilience uses fault injection."},
	{"Blue-Green Deployment", "Blue-green reduces deployment risk. Blue-green deployment keeps two environments."},
	{"Canary Release", "Canary rolls out to a subset. Canary release gradual reduces blast radius."},
	{"Feature Branch", "Feature branches isolate work. Feature branch workflow merges via PR."},
	{"Trunk-Based Development", "Trunk-based keeps main always releasable. Trunk-based development uses short-lived branches."},
	{"Refactoring", "Refactoring improves structure. Refactoring code quality preserves behavior."},
	{"Technical Debt", "Technical debt has interest. Technical debt payoff requires dedicated effort."},
	{"Code Coverage", "Coverage measures test extent. Code coverage tests should focus on critical paths."},
	{"Performance Profiling", "Profiling finds bottlenecks. Performance profiling uses CPU and memory tools."},
	{"Memory Leak", "Memory leaks grow over time. Memory leak debugging uses heap dumps."},
	{"Deadlock Detection", "Deadlocks freeze systems. Deadlock detection concurrency requires care with locks."},
	{"Async Programming", "Async avoids blocking. Async programming await is used in many languages."},
	{"Error Handling", "Errors must be handled. Error handling retry uses backoff strategies."},
	{"Graceful Shutdown", "Graceful shutdown drains connections. Graceful shutdown signal handles SIGTERM."},
	{"Health Check", "Health checks indicate readiness. Health check liveness is used by orchestrators."},
	{"Config Management", "Config varies by environment. Config management environment uses 12-factor."},
	{"Secrets Management", "Secrets must not be in code. Secrets management vault encrypts and audits."},
	{"Infrastructure as Code", "IaC defines infra in code. Infrastructure as code enables versioning."},
	{"GitOps Workflow", "GitOps uses Git as source of truth. GitOps workflow Argo syncs cluster state."},
	{"Container Registry", "Registries store images. Container registry Docker Hub is widely used."},
	{"Image Scanning", "Image scanning finds CVEs. Image scanning vulnerability is part of supply chain security."},
	{"Supply Chain Security", "Supply chain attacks are rising. Supply chain security includes SBOM and signing."},
	{"Open Source License", "Licenses have obligations. Open source license compliance is important."},
	{"API Gateway", "API gateways sit in front of services. API gateway routing and rate limiting are common."},
	{"Service Mesh", "Service mesh manages service-to-service traffic. Service mesh Istio provides mTLS and observability."},
	{"mTLS Overview", "mTLS authenticates both sides. mTLS mutual TLS uses client certificates."},
	{"Zero Downtime", "Zero downtime avoids outages. Zero downtime deployment uses rolling or blue-green."},
	{"Database Migration", "Migrations evolve schema. Database migration schema should be reversible when possible."},
	{"Feature Toggle", "Feature toggles decouple deploy from release. Feature toggle release allows instant rollback."},
	{"Observability", "Observability is metrics logs traces. Observability metrics logs help debug production."},
	{"SRE Practices", "SRE balances reliability and velocity. SRE site reliability engineering uses error budgets."},
	{"On-Call Rotation", "On-call ensures 24/7 coverage. On-call rotation should be fair and sustainable."},
	{"Documentation as Code", "Docs live next to code. Documentation as code uses Markdown and generators."},
	{"API First", "API first designs the contract first. API first design improves consistency."},
	{"Contract Testing", "Contract tests verify API contracts. Contract testing consumer and provider align."},
	{"Smoke Test", "Smoke tests verify basic functionality. Smoke test sanity runs after deployment."},
	{"Regression Test", "Regression tests prevent re-introduced bugs. Regression test suite grows over time."},
	{"Load Test", "Load tests simulate traffic. Load test performance finds limits."},
	{"Fuzz Testing", "Fuzz testing uses random input. Fuzz testing random finds edge cases."},
	{"Property-Based Testing", "Property-based tests generate inputs. Property-based testing verifies invariants."},
}

// queries maps a short query to the title of the topic it must find.
var queries = []struct{ query, title string }{
	{"Python programming", "Python Guide"},
	{"Kubernetes container orchestration", "Kubernetes Docs"},
	{"React hooks", "React Tutorial"},
	{"golang goroutines", "Go Language"},
	{"PostgreSQL relational", "PostgreSQL Manual"},
	{"Docker container images", "Docker Handbook"},
	{"machine learning algorithms", "Machine Learning"},
	{"neural network deep learning", "Neural Networks"},
	{"REST API endpoints", "REST API Design"},
	{"GraphQL query language", "GraphQL Overview"},
	{"TypeScript static types", "TypeScript Handbook"},
	{"Redis in-memory cache", "Redis Cache"},
	{"AWS Lambda serverless", "AWS Lambda"},
	{"Terraform infrastructure", "Terraform IaC"},
	{"Prometheus monitoring", "Prometheus Metrics"},
	{"gRPC protobuf", "gRPC Overview"},
	{"OAuth authorization", "OAuth 2.0"},
	{"JWT tokens", "JWT Tokens"},
	{"Apache Kafka streaming", "Kafka Streams"},
	{"Nginx reverse proxy", "Nginx Config"},
	{"functional programming", "Functional Programming"},
	{"design patterns", "Design Patterns"},
	{"cryptography encryption", "Cryptography Basics"},
	{"event sourcing CQRS", "Event Sourcing"},
	{"domain-driven design aggregates", "Domain-Driven Design"},
	{"Agile Scrum sprint", "Agile Scrum"},
	{"dependency injection", "Dependency Injection"},
	{"hybrid search fusion", "Hybrid Search"},
	{"chunking overlap", "Chunking Strategy"},
	{"prompt engineering", "Prompt Engineering"},
	{"WebSocket bidirectional", "WebSocket Protocol"},
	{"circuit breaker", "Circuit Breaker"},
	{"password hashing bcrypt", "Password Hashing"},
	{"disaster recovery failover", "Disaster Recovery"},
	{"Neo4j graph database", "Graph Database"},
	{"MongoDB documents", "Document Store"},
	{"CRDT replication", "CRDT Overview"},
	{"blameless post-mortem", "Post-Mortem"},
	{"chaos engineering fault injection", "Chaos Engineering"},
	{"canary release", "Canary Release"},
	{"memory leak heap", "Memory Leak"},
	{"graceful shutdown SIGTERM", "Graceful Shutdown"},
	{"secrets vault", "Secrets Management"},
	{"GitOps Argo", "GitOps Workflow"},
	{"service mesh Istio", "Service Mesh"},
	{"fuzz testing random input", "Fuzz Testing"},
}

// documentEvery makes every n-th topic a downloadable document instead of a page.
const documentEvery = 3

// BuildCorpus returns every topic as a page or document, plus one query test case per query.
func BuildCorpus() *Corpus {
	c := &Corpus{Pages: make([]Page, 0, len(topics))}
	byTitle := make(map[string]Page, len(topics))
	docs := 0
	for i, t := range topics {
		p := Page{Slug: Slugify(t.title), Title: t.title, Content: t.content}
		if i%documentEvery == documentEvery-1 {
			p.Ext = SupportedFileExtensions[docs%len(SupportedFileExtensions)]
			docs++
		}
		c.Pages = append(c.Pages, p)
		byTitle[t.title] = p
	}
	for _, q := range queries {
		p, ok := byTitle[q.title]
		if !ok {
			continue
		}
		c.TestCases = append(c.TestCases, QueryTestCase{
			Query:        q.query,
			ExpectedPath: p.Path(),
			Description:  fmt.Sprintf("query %q should find %s", q.query, p.Path()),
		})
	}
	return c
}

// Publish serves the corpus on site: an index page at "/" links to every page and document.
func (c *Corpus) Publish(site *testutil.Site) error {
	links := make([]string, 0, len(c.Pages))
	for _, p := range c.Pages {
		links = append(links, p.Path())
		if p.Ext == "" {
			site.HTML(p.Path(), p.Title, p.Content)
			continue
		}
		body, err := WriteMinimalFile(p.Ext, p.Title, p.Content)
		if err != nil {
			return fmt.Errorf("build %s: %w", p.Path(), err)
		}
		site.Raw(p.Path(), "application/octet-stream", body)
	}
	site.HTML("/", "Study Library", "Browse the study library.", links...)
	return nil
}

// Documents returns how many pages are published as downloadable documents.
func (c *Corpus) Documents() int {
	n := 0
	for _, p := range c.Pages {
		if p.Ext != "" {
			n++
		}
	}
	return n
}

// Slugify lowercases s and joins its letter and digit runs with dashes.
func Slugify(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), "-")
}
