// Package graphql exposes the feed API as a single GraphQL endpoint. The
// schema mirrors the REST surface and delegates to the same services, so
// authentication, ownership and validation behave identically on both.
package graphql

import (
	"github.com/dmitrijs2005/feedstream/internal/server/auth"
	"github.com/dmitrijs2005/feedstream/internal/server/services"
	gql "github.com/graphql-go/graphql"
)

type resolver struct {
	users *services.UserService
	posts *services.PostService
}

func stringArg(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func buildSchema(r *resolver) (gql.Schema, error) {
	userType := gql.NewObject(gql.ObjectConfig{
		Name: "User",
		Fields: gql.Fields{
			"id":     &gql.Field{Type: gql.NewNonNull(gql.ID)},
			"name":   &gql.Field{Type: gql.NewNonNull(gql.String)},
			"email":  &gql.Field{Type: gql.NewNonNull(gql.String)},
			"status": &gql.Field{Type: gql.NewNonNull(gql.String)},
		},
	})

	postType := gql.NewObject(gql.ObjectConfig{
		Name: "Post",
		Fields: gql.Fields{
			"id":        &gql.Field{Type: gql.NewNonNull(gql.ID)},
			"title":     &gql.Field{Type: gql.NewNonNull(gql.String)},
			"content":   &gql.Field{Type: gql.NewNonNull(gql.String)},
			"imageUrl":  &gql.Field{Type: gql.NewNonNull(gql.String)},
			"creatorId": &gql.Field{Type: gql.NewNonNull(gql.ID)},
			"createdAt": &gql.Field{Type: gql.NewNonNull(gql.DateTime)},
			"updatedAt": &gql.Field{Type: gql.NewNonNull(gql.DateTime)},
		},
	})

	authDataType := gql.NewObject(gql.ObjectConfig{
		Name: "AuthData",
		Fields: gql.Fields{
			"token":  &gql.Field{Type: gql.NewNonNull(gql.String)},
			"userId": &gql.Field{Type: gql.NewNonNull(gql.String)},
		},
	})

	postDataType := gql.NewObject(gql.ObjectConfig{
		Name: "PostData",
		Fields: gql.Fields{
			"posts":      &gql.Field{Type: gql.NewNonNull(gql.NewList(gql.NewNonNull(postType)))},
			"totalPosts": &gql.Field{Type: gql.NewNonNull(gql.Int)},
		},
	})

	userInputType := gql.NewInputObject(gql.InputObjectConfig{
		Name: "UserInputData",
		Fields: gql.InputObjectConfigFieldMap{
			"email":    &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
			"name":     &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
			"password": &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
		},
	})

	postInputType := gql.NewInputObject(gql.InputObjectConfig{
		Name: "PostInputData",
		Fields: gql.InputObjectConfigFieldMap{
			"title":    &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
			"content":  &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.String)},
			"imageUrl": &gql.InputObjectFieldConfig{Type: gql.String},
		},
	})

	queryType := gql.NewObject(gql.ObjectConfig{
		Name: "RootQuery",
		Fields: gql.Fields{
			"login": &gql.Field{
				Type: gql.NewNonNull(authDataType),
				Args: gql.FieldConfigArgument{
					"email":    &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
					"password": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
				},
				Resolve: r.login,
			},
			"posts": &gql.Field{
				Type: gql.NewNonNull(postDataType),
				Args: gql.FieldConfigArgument{
					"page": &gql.ArgumentConfig{Type: gql.Int},
				},
				Resolve: r.listPosts,
			},
			"post": &gql.Field{
				Type: gql.NewNonNull(postType),
				Args: gql.FieldConfigArgument{
					"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
				},
				Resolve: r.getPost,
			},
			"user": &gql.Field{
				Type:    gql.NewNonNull(userType),
				Resolve: r.getUser,
			},
		},
	})

	mutationType := gql.NewObject(gql.ObjectConfig{
		Name: "RootMutation",
		Fields: gql.Fields{
			"createUser": &gql.Field{
				Type: gql.NewNonNull(userType),
				Args: gql.FieldConfigArgument{
					"userInput": &gql.ArgumentConfig{Type: gql.NewNonNull(userInputType)},
				},
				Resolve: r.createUser,
			},
			"createPost": &gql.Field{
				Type: gql.NewNonNull(postType),
				Args: gql.FieldConfigArgument{
					"postInput": &gql.ArgumentConfig{Type: gql.NewNonNull(postInputType)},
				},
				Resolve: r.createPost,
			},
			"updatePost": &gql.Field{
				Type: gql.NewNonNull(postType),
				Args: gql.FieldConfigArgument{
					"id":        &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
					"postInput": &gql.ArgumentConfig{Type: gql.NewNonNull(postInputType)},
				},
				Resolve: r.updatePost,
			},
			"deletePost": &gql.Field{
				Type: gql.NewNonNull(gql.Boolean),
				Args: gql.FieldConfigArgument{
					"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
				},
				Resolve: r.deletePost,
			},
			"updateStatus": &gql.Field{
				Type: gql.NewNonNull(userType),
				Args: gql.FieldConfigArgument{
					"status": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
				},
				Resolve: r.updateStatus,
			},
		},
	})

	return gql.NewSchema(gql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func (r *resolver) createUser(p gql.ResolveParams) (interface{}, error) {
	input, _ := p.Args["userInput"].(map[string]interface{})
	return r.users.Signup(p.Context, stringArg(input, "email"), stringArg(input, "password"), stringArg(input, "name"))
}

func (r *resolver) login(p gql.ResolveParams) (interface{}, error) {
	result, err := r.users.Login(p.Context, stringArg(p.Args, "email"), stringArg(p.Args, "password"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"token":  result.Token,
		"userId": result.UserID,
	}, nil
}

func (r *resolver) getUser(p gql.ResolveParams) (interface{}, error) {
	return r.users.GetUser(p.Context, auth.IdentityFromContext(p.Context))
}

func (r *resolver) updateStatus(p gql.ResolveParams) (interface{}, error) {
	ident := auth.IdentityFromContext(p.Context)
	if err := r.users.UpdateStatus(p.Context, ident, stringArg(p.Args, "status")); err != nil {
		return nil, err
	}
	return r.users.GetUser(p.Context, ident)
}

func postInputArg(p gql.ResolveParams) services.PostInput {
	input, _ := p.Args["postInput"].(map[string]interface{})
	return services.PostInput{
		Title:    stringArg(input, "title"),
		Content:  stringArg(input, "content"),
		ImageURL: stringArg(input, "imageUrl"),
	}
}

func (r *resolver) createPost(p gql.ResolveParams) (interface{}, error) {
	return r.posts.Create(p.Context, auth.IdentityFromContext(p.Context), postInputArg(p))
}

func (r *resolver) updatePost(p gql.ResolveParams) (interface{}, error) {
	return r.posts.Update(p.Context, auth.IdentityFromContext(p.Context), stringArg(p.Args, "id"), postInputArg(p))
}

func (r *resolver) deletePost(p gql.ResolveParams) (interface{}, error) {
	if err := r.posts.Delete(p.Context, auth.IdentityFromContext(p.Context), stringArg(p.Args, "id")); err != nil {
		return nil, err
	}
	return true, nil
}

func (r *resolver) getPost(p gql.ResolveParams) (interface{}, error) {
	return r.posts.Get(p.Context, auth.IdentityFromContext(p.Context), stringArg(p.Args, "id"))
}

func (r *resolver) listPosts(p gql.ResolveParams) (interface{}, error) {
	page := 1
	if v, ok := p.Args["page"].(int); ok {
		page = v
	}
	posts, total, err := r.posts.List(p.Context, auth.IdentityFromContext(p.Context), page)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"posts":      posts,
		"totalPosts": total,
	}, nil
}
