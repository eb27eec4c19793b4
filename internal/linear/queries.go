package linear

// Wire shapes for Linear's GraphQL schema. Nullable objects are pointers and
// timestamps stay strings so mapping can tell "absent" from "malformed".

type nodeRef struct {
	ID string `json:"id"`
}

type userNode struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	AvatarURL   *string `json:"avatarUrl"`
	DisplayName string  `json:"displayName"`
	Active      *bool   `json:"active"`
	Admin       bool    `json:"admin"`
	Timezone    *string `json:"timezone"`
}

type stateNode struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Position float64 `json:"position"`
}

type labelNode struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Description *string `json:"description"`
}

type teamRef struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type issueNode struct {
	ID          string   `json:"id"`
	Identifier  string   `json:"identifier"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Priority    *int     `json:"priority"`
	URL         string   `json:"url"`
	BranchName  string   `json:"branchName"`
	Number      *float64 `json:"number"`
	CreatedAt   *string  `json:"createdAt"`
	UpdatedAt   *string  `json:"updatedAt"`
	DueDate     *string  `json:"dueDate"`
	Estimate    *float64 `json:"estimate"`

	State    *stateNode `json:"state"`
	Assignee *nodeRef   `json:"assignee"`
	Creator  *nodeRef   `json:"creator"`
	Project  *nodeRef   `json:"project"`
	Team     *teamRef   `json:"team"`
	Cycle    *struct {
		Number float64 `json:"number"`
	} `json:"cycle"`
	Parent *struct {
		Identifier string `json:"identifier"`
	} `json:"parent"`
	Labels *struct {
		Nodes []labelNode `json:"nodes"`
	} `json:"labels"`
}

type teamNode struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Key         string  `json:"key"`
	Description *string `json:"description"`
	Private     bool    `json:"private"`
	Members     *struct {
		Nodes []userNode `json:"nodes"`
	} `json:"members"`
}

type projectNode struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	SlugID      string   `json:"slugId"`
	State       string   `json:"state"`
	TargetDate  *string  `json:"targetDate"`
	Lead        *nodeRef `json:"lead"`
	CreatedAt   *string  `json:"createdAt"`
	UpdatedAt   *string  `json:"updatedAt"`
	Progress    float64  `json:"progress"`
}

type milestoneNode struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	TargetDate  *string `json:"targetDate"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

const userFields = `
fragment UserFields on User {
  id
  name
  email
  avatarUrl
  displayName
  active
  admin
  timezone
}`

const issueFields = `
fragment IssueFields on Issue {
  id
  identifier
  title
  description
  priority
  url
  branchName
  number
  createdAt
  updatedAt
  dueDate
  estimate
  state { id name type position }
  assignee { id }
  creator { id }
  project { id }
  team { id key }
  cycle { number }
  parent { identifier }
  labels { nodes { id name color description } }
}`

const projectFields = `
fragment ProjectFields on Project {
  id
  name
  description
  slugId
  state
  targetDate
  lead { id }
  createdAt
  updatedAt
  progress
}`

const (
	viewerQuery = `query Viewer {
  viewer { ...UserFields }
}` + userFields

	userQuery = `query User($id: String!) {
  user(id: $id) { ...UserFields }
}` + userFields

	assignedIssuesQuery = `query AssignedIssues($userId: String!, $first: Int!, $after: String) {
  user(id: $userId) {
    id
    assignedIssues(first: $first, after: $after, orderBy: updatedAt) {
      nodes { ...IssueFields }
      pageInfo { hasNextPage endCursor }
    }
  }
}` + issueFields

	issueQuery = `query Issue($id: String!) {
  issue(id: $id) { ...IssueFields }
}` + issueFields

	issuesQuery = `query Issues($filter: IssueFilter, $first: Int!, $after: String) {
  issues(filter: $filter, first: $first, after: $after, orderBy: updatedAt) {
    nodes { ...IssueFields }
    pageInfo { hasNextPage endCursor }
  }
}` + issueFields

	issueCreateMutation = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue { id }
  }
}`

	issueUpdateMutation = `mutation IssueUpdate($id: String!, $input: IssueUpdateInput!) {
  issueUpdate(id: $id, input: $input) {
    success
    issue { id }
  }
}`

	teamsQuery = `query Teams {
  teams(first: 100) {
    nodes {
      id
      name
      key
      description
      private
      members { nodes { ...UserFields } }
    }
  }
}` + userFields

	teamMembersQuery = `query TeamMembers($id: String!) {
  team(id: $id) {
    id
    members { nodes { ...UserFields } }
  }
}` + userFields

	labelsQuery = `query Labels {
  issueLabels(first: 250) {
    nodes { id name color description }
  }
}`

	labelCreateMutation = `mutation LabelCreate($input: IssueLabelCreateInput!) {
  issueLabelCreate(input: $input) {
    success
    issueLabel { id name color description }
  }
}`

	projectsQuery = `query Projects {
  projects(first: 100) {
    nodes { ...ProjectFields }
  }
}` + projectFields

	projectQuery = `query Project($id: String!) {
  project(id: $id) { ...ProjectFields }
}` + projectFields

	projectMilestonesQuery = `query ProjectMilestones($id: String!) {
  project(id: $id) {
    id
    projectMilestones { nodes { id name description targetDate } }
  }
}`

	organizationQuery = `query Organization {
  organization { id name urlKey }
}`
)
